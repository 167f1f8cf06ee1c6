package armature

import "fmt"

// ArmatureLookup resolves armatures registered by earlier documents.
type ArmatureLookup interface {
	Armature(name string) *ArmatureData
}

// Decode dispatches content to the decoder for format. lookup may be nil.
func Decode(format Format, content []byte, info *DataInfo, lookup ArmatureLookup) (*Bundle, error) {
	switch format {
	case FormatXML:
		return DecodeXML(content, info, lookup)
	case FormatJSON:
		return DecodeJSON(content, info)
	}
	return nil, fmt.Errorf("decode %s: %w", info.Filename, ErrUnknownFormat)
}
