package archive

import "fmt"

// VerificationType is the file-level integrity-check mode carried by V5+
// FileDef records. The wire values are not re-derived from the archive's
// actual checksum bytes by this decoder (that would require hashing every
// file's payload against the declared hash_pos on every decode); they are
// surfaced as metadata for callers that want to perform their own
// verification pass.
type VerificationType int

const (
	VerificationNone VerificationType = iota
	VerificationCRC
	VerificationCRCBlocks
	VerificationMD5
	VerificationMD5Blocks
)

func (v VerificationType) String() string {
	switch v {
	case VerificationNone:
		return "None"
	case VerificationCRC:
		return "CRC"
	case VerificationCRCBlocks:
		return "CRCBlocks"
	case VerificationMD5:
		return "MD5"
	case VerificationMD5Blocks:
		return "MD5Blocks"
	default:
		return fmt.Sprintf("VerificationType(%d)", int(v))
	}
}
