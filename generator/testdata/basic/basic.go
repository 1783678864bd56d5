package basic

// Header is the fixed prefix of every record.
//
//fieldoffsets:generate
type Header struct {
	Magic   uint32
	Version uint16
	Flags   uint16
	Length  uint64
}

// Trailer is not marked and only generated when named.
type Trailer struct {
	Checksum uint32
	_        [4]byte
}

type Entry struct {
	Header
	key   [16]byte
	value *byte
}
