package excel

// workbookFormat is the container format detected from the file bytes
type workbookFormat int

const (
	formatUnknown workbookFormat = iota
	formatOOXML                  // .xlsx, a zip package
	formatBIFF                   // .xls, an OLE2 compound document
)

var (
	zipMagic = []byte{'P', 'K', 0x03, 0x04}
	oleMagic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
)

func (f workbookFormat) String() string {
	switch f {
	case formatOOXML:
		return "xlsx"
	case formatBIFF:
		return "xls"
	default:
		return "unknown"
	}
}
