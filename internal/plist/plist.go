// Package plist reads cocos2d sprite sheet property lists, the files that
// describe frame rectangles inside an atlas image.
//
// The property list container (XML, binary or OpenStep text) is decoded by
// howett.net/plist. This package maps the sheet dictionaries onto frames and
// parses the "{{x,y},{w,h}}" geometry strings cocos2d stores as values.
package plist

import (
	"fmt"
	"strconv"
	"strings"
)

// Point is a 2D offset.
type Point struct {
	X, Y float64
}

// Size is a 2D extent.
type Size struct {
	W, H float64
}

// Rect is an axis aligned rectangle with a top-left origin.
type Rect struct {
	X, Y, W, H float64
}

// ParseRect parses "{{x,y},{w,h}}".
func ParseRect(s string) (Rect, error) {
	v, err := parseNumbers(s, 4)
	if err != nil {
		return Rect{}, err
	}
	return Rect{X: v[0], Y: v[1], W: v[2], H: v[3]}, nil
}

// ParsePoint parses "{x,y}".
func ParsePoint(s string) (Point, error) {
	v, err := parseNumbers(s, 2)
	if err != nil {
		return Point{}, err
	}
	return Point{X: v[0], Y: v[1]}, nil
}

// ParseSize parses "{w,h}".
func ParseSize(s string) (Size, error) {
	v, err := parseNumbers(s, 2)
	if err != nil {
		return Size{}, err
	}
	return Size{W: v[0], H: v[1]}, nil
}

func parseNumbers(s string, n int) ([]float64, error) {
	clean := strings.NewReplacer("{", "", "}", "", " ", "", "\t", "").Replace(s)
	parts := strings.Split(clean, ",")
	if len(parts) != n {
		return nil, fmt.Errorf("plist: %q: want %d numbers, got %d", s, n, len(parts))
	}
	out := make([]float64, n)
	for i, p := range parts {
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return nil, fmt.Errorf("plist: %q: %w", s, err)
		}
		out[i] = v
	}
	return out, nil
}

// number converts a decoded property list scalar to float64. Integers decode
// as int64 or uint64 depending on sign, reals as float64 or float32.
func number(v any) float64 {
	switch n := v.(type) {
	case int64:
		return float64(n)
	case uint64:
		return float64(n)
	case float64:
		return n
	case float32:
		return float64(n)
	case string:
		f, _ := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f
	}
	return 0
}
