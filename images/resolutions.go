package images

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// ResolutionName is a short alias for a common target size, usable wherever a
// WIDTHxHEIGHT size is accepted.
type ResolutionName string

const (
	ResolutionDeepLab ResolutionName = "deeplab"
	ResolutionVGA     ResolutionName = "vga"
	ResolutionNHD     ResolutionName = "nhd"
	ResolutionHD720   ResolutionName = "720p"
	ResolutionFHD1080 ResolutionName = "1080p"
	ResolutionUHD4K   ResolutionName = "4k"
)

// Resolution describes a named target size.
type Resolution struct {
	Name ResolutionName `json:"name"`
	Size Size           `json:"size"`
}

// MegaPixels returns the pixel count in megapixels rounded to two decimal places.
func (r Resolution) MegaPixels() float64 {
	if r.Size.Width <= 0 || r.Size.Height <= 0 {
		return 0.0
	}
	mp := float64(r.Size.Width*r.Size.Height) / 1_000_000.0
	return math.Round(mp*100) / 100
}

func (r Resolution) String() string {
	return fmt.Sprintf("%s (%s, %.2fMP)", r.Name, r.Size, r.MegaPixels())
}

// resolutions is keyed by name for lookups from the command line.
var resolutions = map[ResolutionName]Resolution{
	// Square crop used by the DeepLab dataset scripts.
	ResolutionDeepLab: {Name: ResolutionDeepLab, Size: Size{Width: 400, Height: 400}},
	ResolutionVGA:     {Name: ResolutionVGA, Size: Size{Width: 640, Height: 480}},
	ResolutionNHD:     {Name: ResolutionNHD, Size: Size{Width: 640, Height: 360}},
	ResolutionHD720:   {Name: ResolutionHD720, Size: Size{Width: 1280, Height: 720}},
	ResolutionFHD1080: {Name: ResolutionFHD1080, Size: Size{Width: 1920, Height: 1080}},
	ResolutionUHD4K:   {Name: ResolutionUHD4K, Size: Size{Width: 3840, Height: 2160}},
}

// LookupResolution returns the resolution with the given name, ignoring case.
func LookupResolution(name string) (Resolution, bool) {
	res, ok := resolutions[ResolutionName(strings.ToLower(strings.TrimSpace(name)))]
	return res, ok
}

// Resolutions returns every named resolution ordered by pixel count.
func Resolutions() []Resolution {
	all := make([]Resolution, 0, len(resolutions))
	for _, res := range resolutions {
		all = append(all, res)
	}
	sort.Slice(all, func(i, j int) bool {
		pi, pj := all[i].Size.Width*all[i].Size.Height, all[j].Size.Width*all[j].Size.Height
		if pi != pj {
			return pi < pj
		}
		return all[i].Name < all[j].Name
	})
	return all
}
