package election

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Frame layout (big-endian):
//
//	offset 0  state          int32
//	offset 4  leader         int64
//	offset 12 zxid           int64
//	offset 20 electionEpoch  int64
//	offset 28 peerEpoch      int64   (absent in 28-byte frames)
//	offset 36 version        int32   (absent in 28- and 40-byte frames)
//	offset 40 configLength   int32   (only when version > 1)
//	offset 44 configData     []byte
//
// 28- and 40-byte frames are older generations of the protocol that peers
// still emit during rolling upgrades; both must stay decodable.
const (
	frameLenV0 = 28
	frameLenV1 = 40
	frameLenV2 = 44

	// versionLegacy marks frames without a config trailer.
	versionLegacy = 0x1
	// versionCurrent marks frames that carry the sender's serialized quorum
	// configuration.
	versionCurrent = 0x2
)

var (
	// ErrShortFrame is returned for frames below the 28-byte minimum every
	// protocol generation shares.
	ErrShortFrame = errors.New("election: frame shorter than 28 bytes")
	// ErrTruncatedFrame is returned when a frame ends in the middle of a
	// field its length implies it carries.
	ErrTruncatedFrame = errors.New("election: truncated frame")
)

// WireFrame is the raw decoded content of a notification frame. State is
// left as the wire integer: validating it against the known states is the
// receive worker's job, not the codec's.
type WireFrame struct {
	State         int32
	Leader        int64
	Zxid          int64
	ElectionEpoch int64
	PeerEpoch     int64
	Version       int32
	ConfigData    []byte
}

// BuildFrame encodes a notification in the current format, appending the
// serialized quorum configuration as a length-prefixed trailer.
func BuildFrame(state ServerState, leader, zxid, electionEpoch, peerEpoch int64, configData []byte) []byte {
	buf := make([]byte, frameLenV2+len(configData))
	binary.BigEndian.PutUint32(buf[0:], uint32(state))
	binary.BigEndian.PutUint64(buf[4:], uint64(leader))
	binary.BigEndian.PutUint64(buf[12:], uint64(zxid))
	binary.BigEndian.PutUint64(buf[20:], uint64(electionEpoch))
	binary.BigEndian.PutUint64(buf[28:], uint64(peerEpoch))
	binary.BigEndian.PutUint32(buf[36:], versionCurrent)
	binary.BigEndian.PutUint32(buf[40:], uint32(len(configData)))
	copy(buf[44:], configData)
	return buf
}

// BuildLegacyFrame encodes a 40-byte frame without a config trailer, the
// format peers one generation back emit. Kept for cross-version tests.
func BuildLegacyFrame(state ServerState, leader, zxid, electionEpoch, peerEpoch int64) []byte {
	buf := make([]byte, frameLenV1)
	binary.BigEndian.PutUint32(buf[0:], uint32(state))
	binary.BigEndian.PutUint64(buf[4:], uint64(leader))
	binary.BigEndian.PutUint64(buf[12:], uint64(zxid))
	binary.BigEndian.PutUint64(buf[20:], uint64(electionEpoch))
	binary.BigEndian.PutUint64(buf[28:], uint64(peerEpoch))
	binary.BigEndian.PutUint32(buf[36:], versionLegacy)
	return buf
}

// ParseFrame decodes a notification frame of any supported generation.
//
// 28-byte frames predate the explicit peer epoch; it is recovered from the
// upper 32 bits of the zxid. 40-byte frames carry the peer epoch but no
// usable version field, so their version decodes as 0. Frames of 44 bytes or
// more carry a version, and versions above 1 a config trailer whose declared
// length must fit inside the frame.
func ParseFrame(frame []byte) (*WireFrame, error) {
	if len(frame) < frameLenV0 {
		return nil, fmt.Errorf("%w: got %d bytes", ErrShortFrame, len(frame))
	}

	f := &WireFrame{
		State:         int32(binary.BigEndian.Uint32(frame[0:])),
		Leader:        int64(binary.BigEndian.Uint64(frame[4:])),
		Zxid:          int64(binary.BigEndian.Uint64(frame[12:])),
		ElectionEpoch: int64(binary.BigEndian.Uint64(frame[20:])),
	}

	switch {
	case len(frame) == frameLenV0:
		f.PeerEpoch = epochFromZxid(f.Zxid)
		return f, nil
	case len(frame) < frameLenV0+8:
		return nil, fmt.Errorf("%w: %d bytes ends inside peerEpoch", ErrTruncatedFrame, len(frame))
	}
	f.PeerEpoch = int64(binary.BigEndian.Uint64(frame[28:]))

	if len(frame) == frameLenV1 {
		return f, nil
	}
	if len(frame) < frameLenV2 {
		return nil, fmt.Errorf("%w: %d bytes ends inside version", ErrTruncatedFrame, len(frame))
	}
	f.Version = int32(binary.BigEndian.Uint32(frame[36:]))

	if f.Version <= versionLegacy {
		return f, nil
	}
	configLength := int32(binary.BigEndian.Uint32(frame[40:]))
	if configLength < 0 || int(configLength) > len(frame) {
		return nil, fmt.Errorf("election: invalid configLength %d in %d-byte frame", configLength, len(frame))
	}
	if int(configLength) > len(frame)-frameLenV2 {
		return nil, fmt.Errorf("%w: configLength %d exceeds %d-byte frame", ErrTruncatedFrame, configLength, len(frame))
	}
	f.ConfigData = frame[frameLenV2 : frameLenV2+int(configLength)]
	return f, nil
}

// epochFromZxid recovers the epoch baked into the upper 32 bits of a zxid.
func epochFromZxid(zxid int64) int64 {
	return zxid >> 32
}
