package stale

type Data struct {
	x     int32
	y     int32
	label [8]byte
}
