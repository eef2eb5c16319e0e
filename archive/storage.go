package archive

import "fmt"

// StorageType is the canonical, version-independent compression scheme a
// file's payload is stored under.
type StorageType int

const (
	// StorageStore means the payload is stored uncompressed.
	StorageStore StorageType = iota
	// StorageBufferCompress means the payload is compressed as one buffer.
	StorageBufferCompress
	// StorageStreamCompress means the payload is compressed as a stream of
	// blocks.
	StorageStreamCompress
)

func (s StorageType) String() string {
	switch s {
	case StorageStore:
		return "STORE"
	case StorageBufferCompress:
		return "BUFFER_COMPRESS"
	case StorageStreamCompress:
		return "STREAM_COMPRESS"
	default:
		return fmt.Sprintf("StorageType(%d)", int(s))
	}
}

// UnknownStorageTypeError is returned when a FileDef's on-disk storage-type
// value does not map to a known StorageType for its version's encoding.
type UnknownStorageTypeError struct {
	Got int
}

func (e *UnknownStorageTypeError) Error() string {
	return fmt.Sprintf("sga: unknown storage type %d", e.Got)
}

// storageTypeV2 maps V2's wire values (0/16/32) to the canonical enum, per
// spec.md §4.2 and the original v2/_serializers.py FileDefSerializer.
func storageTypeV2(wire int) (StorageType, error) {
	switch wire {
	case 0:
		return StorageStore, nil
	case 16:
		return StorageBufferCompress, nil
	case 32:
		return StorageStreamCompress, nil
	default:
		return 0, &UnknownStorageTypeError{Got: wire}
	}
}

func storageTypeV2Wire(s StorageType) (int, error) {
	switch s {
	case StorageStore:
		return 0, nil
	case StorageBufferCompress:
		return 16, nil
	case StorageStreamCompress:
		return 32, nil
	default:
		return 0, &UnknownStorageTypeError{Got: int(s)}
	}
}

// storageTypeDirect maps V5+'s wire values (0/1/2), used directly as the
// enum ordinal.
func storageTypeDirect(wire int) (StorageType, error) {
	switch wire {
	case 0, 1, 2:
		return StorageType(wire), nil
	default:
		return 0, &UnknownStorageTypeError{Got: wire}
	}
}

// StorageTypeV2Wire exposes the V2 wire-value mapping for callers building
// synthetic V2 archives (tests, future writer support).
func StorageTypeV2Wire(s StorageType) (int, error) { return storageTypeV2Wire(s) }

// StorageTypeV2FromWire exposes the V2 wire-value mapping for callers.
func StorageTypeV2FromWire(wire int) (StorageType, error) { return storageTypeV2(wire) }

// StorageTypeFromWire exposes the V5+ wire-value mapping for callers.
func StorageTypeFromWire(wire int) (StorageType, error) { return storageTypeDirect(wire) }
