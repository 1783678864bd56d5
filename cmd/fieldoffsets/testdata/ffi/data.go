package ffi

//fieldoffsets:generate
type Data struct {
	x     int32
	y     int32
	label [8]byte
}

type Header struct {
	Magic   uint32
	Version uint16
	Flags   uint16 `wit:"bits"`
	Length  uint64
}
