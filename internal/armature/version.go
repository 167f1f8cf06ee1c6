package armature

import (
	"errors"
	"math"
	"path/filepath"
	"strings"
	"sync/atomic"
)

// Format versions that change how a document is read.
const (
	// Version20 switches XML position attributes to cocos2d_x/cocos2d_y and
	// texture pivots to the normalized cocos2d_pX/cocos2d_pY attributes.
	Version20 = 2.0
	// VersionCombined switches JSON frames from per-frame durations to
	// absolute frame indexes.
	VersionCombined = 0.3
	// VersionChangeRotationRange is the first JSON version whose skew values
	// are already unbounded.
	VersionChangeRotationRange = 1.0
	// VersionColorReading switches JSON color from a one element array to a
	// plain object.
	VersionColorReading = 1.1
)

// Default versions assumed when a document does not declare one.
const (
	DefaultFlashToolVersion  = 0.0
	DefaultCocoStudioVersion = 0.1
)

var (
	// ErrEmptyDocument is returned when a document has no parsable root.
	ErrEmptyDocument = errors.New("document is empty or malformed")
	// ErrMissingSection is returned when a required top-level section is absent.
	ErrMissingSection = errors.New("document section missing")
	// ErrUnknownFormat is returned for a file extension no decoder handles.
	ErrUnknownFormat = errors.New("unknown document format")
)

// Format is the source form of a document.
type Format int

const (
	FormatUnknown Format = iota
	// FormatXML is the legacy Flash/DragonBones markup form.
	FormatXML
	// FormatJSON is the CocoStudio dictionary form.
	FormatJSON
)

func (f Format) String() string {
	switch f {
	case FormatXML:
		return "xml"
	case FormatJSON:
		return "json"
	}
	return "unknown"
}

// FormatFromPath selects the decoder by file extension:
// .xml is XML, .json and .ExportJson are JSON.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xml":
		return FormatXML
	case ".json", ".exportjson":
		return FormatJSON
	}
	return FormatUnknown
}

var positionReadScale atomic.Uint64

func init() {
	SetPositionReadScale(1)
}

// SetPositionReadScale sets the process-wide multiplier applied to every
// decoded position. It affects DataInfo values created afterwards.
func SetPositionReadScale(scale float64) {
	positionReadScale.Store(math.Float64bits(scale))
}

// PositionReadScale returns the process-wide position multiplier.
func PositionReadScale() float64 {
	return math.Float64frombits(positionReadScale.Load())
}

// DataInfo is the per-request decode context. The decoder updates the version
// fields as it reads them, so one DataInfo must not be shared between
// concurrent decodes.
type DataInfo struct {
	// Filename is the source document path.
	Filename string
	// BaseFilePath is the directory prefix of Filename, ending in "/" or empty.
	BaseFilePath string

	FlashToolVersion  float64
	CocoStudioVersion float64

	// ContentScale is read from the JSON document, 1 otherwise.
	ContentScale float64
	// PositionReadScale is the process-wide scale captured at request time.
	PositionReadScale float64

	// AutoLoadSpriteFile makes the JSON decoder collect config_file_path entries.
	AutoLoadSpriteFile bool
}

// NewDataInfo creates a context for decoding filename with the current
// process-wide position read scale.
func NewDataInfo(filename string) *DataInfo {
	return &DataInfo{
		Filename:          filename,
		BaseFilePath:      BasePath(filename),
		FlashToolVersion:  DefaultFlashToolVersion,
		CocoStudioVersion: DefaultCocoStudioVersion,
		ContentScale:      1,
		PositionReadScale: PositionReadScale(),
	}
}

// BasePath returns everything up to and including the last slash of path.
func BasePath(path string) string {
	path = filepath.ToSlash(path)
	if i := strings.LastIndex(path, "/"); i >= 0 {
		return path[:i+1]
	}
	return ""
}

// useRenamedPosition reports whether XML positions come from cocos2d_x/cocos2d_y.
func (d *DataInfo) useRenamedPosition() bool {
	return d.FlashToolVersion >= Version20
}

func (d *DataInfo) combinedFrames() bool {
	return d.CocoStudioVersion >= VersionCombined
}

func (d *DataInfo) unwrapJSONRotation() bool {
	return d.CocoStudioVersion < VersionChangeRotationRange
}

func (d *DataInfo) colorAsArray() bool {
	return d.CocoStudioVersion < VersionColorReading
}
