package broken

type Data struct {
	x undefinedType
}
