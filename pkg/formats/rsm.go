// Package formats reads RSM keyframed model files: a named node hierarchy
// with per-node vertices and position, rotation and scale keyframes.
package formats

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/Faultbox/animdirector/pkg/encoding"
)

// RSM format errors.
var (
	ErrInvalidRSMMagic       = errors.New("invalid RSM magic: expected 'GRSM'")
	ErrUnsupportedRSMVersion = errors.New("unsupported RSM version")
	ErrTruncatedRSMData      = errors.New("truncated RSM data")
	ErrInvalidNodeCount      = errors.New("invalid RSM node count")
)

const (
	rsmMagic   = "GRSM"
	nameLength = 40

	maxNodes     = 10000
	maxElements  = 100000
	maxKeyframes = 10000
)

// RSMVersion represents the RSM file version.
type RSMVersion struct {
	Major uint8
	Minor uint8
}

// String returns the version as "Major.Minor".
func (v RSMVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// AtLeast returns true if version is >= major.minor.
func (v RSMVersion) AtLeast(major, minor uint8) bool {
	return v.Major > major || (v.Major == major && v.Minor >= minor)
}

func (v RSMVersion) supported() bool {
	return v.Major == 1 && v.Minor >= 1 && v.Minor <= 5
}

// RSMPosKeyframe is a position keyframe. Frame is in milliseconds.
type RSMPosKeyframe struct {
	Frame    int32
	Position [3]float32
}

// RSMRotKeyframe is a rotation keyframe (x, y, z, w).
type RSMRotKeyframe struct {
	Frame      int32
	Quaternion [4]float32
}

// RSMScaleKeyframe is a scale keyframe.
type RSMScaleKeyframe struct {
	Frame int32
	Scale [3]float32
}

// RSMNode is one node of the model hierarchy. Texture coordinates and faces
// are skipped on read; FaceCount keeps their number.
type RSMNode struct {
	Name     string
	Parent   string // empty for the root
	Offset   [3]float32
	Position [3]float32
	RotAngle float32
	RotAxis  [3]float32
	Scale    [3]float32

	Vertices  [][3]float32
	FaceCount int

	PosKeys   []RSMPosKeyframe // before 1.5
	RotKeys   []RSMRotKeyframe
	ScaleKeys []RSMScaleKeyframe // 1.5 and later
}

// RSM is a parsed model.
type RSM struct {
	Version    RSMVersion
	AnimLength int32 // milliseconds
	RootNode   string
	Nodes      []RSMNode
}

// rsmReader reads little-endian fields and keeps the first error.
type rsmReader struct {
	r   *bytes.Reader
	err error
}

func (rr *rsmReader) read(v any) {
	if rr.err != nil {
		return
	}
	if err := binary.Read(rr.r, binary.LittleEndian, v); err != nil {
		rr.err = ErrTruncatedRSMData
	}
}

func (rr *rsmReader) skip(n int64) {
	if rr.err != nil {
		return
	}
	if int64(rr.r.Len()) < n {
		rr.err = ErrTruncatedRSMData
		return
	}
	_, _ = rr.r.Seek(n, io.SeekCurrent)
}

func (rr *rsmReader) name() string {
	buf := make([]byte, nameLength)
	rr.read(buf)
	return encoding.FixedStringToUTF8(buf)
}

// count reads an element count, failing when it is negative or above limit.
func (rr *rsmReader) count(what string, limit int32) int {
	var n int32
	rr.read(&n)
	if rr.err == nil && (n < 0 || n > limit) {
		rr.err = fmt.Errorf("invalid %s count %d", what, n)
	}
	if rr.err != nil {
		return 0
	}
	return int(n)
}

// ParseRSM parses RSM 1.1 to 1.5 data.
func ParseRSM(data []byte) (*RSM, error) {
	if len(data) < 6 {
		return nil, ErrTruncatedRSMData
	}
	if string(data[:4]) != rsmMagic {
		return nil, ErrInvalidRSMMagic
	}
	rsm := &RSM{Version: RSMVersion{Major: data[4], Minor: data[5]}}
	if !rsm.Version.supported() {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedRSMVersion, rsm.Version)
	}

	rr := &rsmReader{r: bytes.NewReader(data[6:])}
	var shading int32
	rr.read(&rsm.AnimLength)
	rr.read(&shading)
	if rsm.Version.AtLeast(1, 4) {
		rr.skip(1) // alpha
	}
	rr.skip(16) // reserved

	textures := rr.count("texture", maxElements)
	rr.skip(int64(textures) * nameLength)
	rsm.RootNode = rr.name()

	var nodeCount int32
	rr.read(&nodeCount)
	if rr.err != nil {
		return nil, rr.err
	}
	if nodeCount < 0 || nodeCount > maxNodes {
		return nil, ErrInvalidNodeCount
	}

	rsm.Nodes = make([]RSMNode, nodeCount)
	for i := range rsm.Nodes {
		rsm.Nodes[i] = rr.node(rsm.Version)
		if rr.err != nil {
			return nil, fmt.Errorf("parsing node %d: %w", i, rr.err)
		}
	}
	return rsm, nil
}

func (rr *rsmReader) node(version RSMVersion) RSMNode {
	var n RSMNode
	n.Name = rr.name()
	n.Parent = rr.name()

	textures := rr.count("texture id", maxElements)
	rr.skip(int64(textures) * 4)
	rr.skip(9 * 4) // 3x3 matrix
	rr.read(&n.Offset)
	rr.read(&n.Position)
	rr.read(&n.RotAngle)
	rr.read(&n.RotAxis)
	rr.read(&n.Scale)

	n.Vertices = make([][3]float32, rr.count("vertex", maxElements))
	rr.read(n.Vertices)

	texCoordSize := int64(8)
	faceSize := int64(20)
	if version.AtLeast(1, 2) {
		texCoordSize += 4 // vertex color
		faceSize += 4     // smoothing group
	}
	rr.skip(int64(rr.count("texcoord", maxElements)) * texCoordSize)
	n.FaceCount = rr.count("face", maxElements)
	rr.skip(int64(n.FaceCount) * faceSize)

	if !version.AtLeast(1, 5) {
		n.PosKeys = make([]RSMPosKeyframe, rr.count("position key", maxKeyframes))
		rr.read(n.PosKeys)
	}
	n.RotKeys = make([]RSMRotKeyframe, rr.count("rotation key", maxKeyframes))
	rr.read(n.RotKeys)
	if version.AtLeast(1, 5) {
		n.ScaleKeys = make([]RSMScaleKeyframe, rr.count("scale key", maxKeyframes))
		rr.read(n.ScaleKeys)
	}
	return n
}

// ParseRSMFile parses an RSM file from disk.
func ParseRSMFile(path string) (*RSM, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading RSM file: %w", err)
	}
	return ParseRSM(data)
}

// MarshalBinary encodes the model in its version's layout. Nodes are written
// without textures, texture coordinates or faces.
func (rsm *RSM) MarshalBinary() ([]byte, error) {
	if !rsm.Version.supported() {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedRSMVersion, rsm.Version)
	}
	var buf bytes.Buffer
	w := func(v any) { _ = binary.Write(&buf, binary.LittleEndian, v) }

	buf.WriteString(rsmMagic)
	w([]uint8{rsm.Version.Major, rsm.Version.Minor})
	w(rsm.AnimLength)
	w(int32(0)) // shading
	if rsm.Version.AtLeast(1, 4) {
		w(uint8(255))
	}
	w(make([]byte, 16))
	w(int32(0)) // textures
	w(encoding.UTF8ToFixedString(rsm.RootNode, nameLength))
	w(int32(len(rsm.Nodes)))

	for _, n := range rsm.Nodes {
		w(encoding.UTF8ToFixedString(n.Name, nameLength))
		w(encoding.UTF8ToFixedString(n.Parent, nameLength))
		w(int32(0)) // texture ids
		w([9]float32{1, 0, 0, 0, 1, 0, 0, 0, 1})
		w(n.Offset)
		w(n.Position)
		w(n.RotAngle)
		w(n.RotAxis)
		w(n.Scale)
		w(int32(len(n.Vertices)))
		w(n.Vertices)
		w(int32(0)) // texcoords
		w(int32(0)) // faces
		if !rsm.Version.AtLeast(1, 5) {
			w(int32(len(n.PosKeys)))
			w(n.PosKeys)
		}
		w(int32(len(n.RotKeys)))
		w(n.RotKeys)
		if rsm.Version.AtLeast(1, 5) {
			w(int32(len(n.ScaleKeys)))
			w(n.ScaleKeys)
		}
	}
	return buf.Bytes(), nil
}

// Node returns the first node named name, or nil.
func (rsm *RSM) Node(name string) *RSMNode {
	for i := range rsm.Nodes {
		if rsm.Nodes[i].Name == name {
			return &rsm.Nodes[i]
		}
	}
	return nil
}

// Children returns the nodes whose parent is name, in file order.
func (rsm *RSM) Children(name string) []*RSMNode {
	var out []*RSMNode
	for i := range rsm.Nodes {
		if rsm.Nodes[i].Parent == name && rsm.Nodes[i].Name != name {
			out = append(out, &rsm.Nodes[i])
		}
	}
	return out
}

// HasAnimation returns true if any node carries keyframes.
func (rsm *RSM) HasAnimation() bool {
	for _, n := range rsm.Nodes {
		if len(n.PosKeys) > 0 || len(n.RotKeys) > 0 || len(n.ScaleKeys) > 0 {
			return true
		}
	}
	return false
}

// Duration returns the animation length in seconds.
func (rsm *RSM) Duration() float64 {
	return float64(rsm.AnimLength) / 1000
}
