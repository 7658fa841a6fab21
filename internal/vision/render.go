package vision

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	"gonum.org/v1/plot/palette/moreland"
)

// RenderHeatmapPNG projects a [0,1] intensity field onto the extended
// black-body colormap and encodes it as PNG. The field is row-major with
// the given dimensions; presentation only, the raw field stays the
// programmatic contract.
func RenderHeatmapPNG(field []float64, width, height int) ([]byte, error) {
	if width <= 0 || height <= 0 || len(field) != width*height {
		return nil, fmt.Errorf("field dimensions %dx%d do not match %d cells", width, height, len(field))
	}

	cm := moreland.ExtendedBlackBody()
	cm.SetMin(0)
	cm.SetMax(1)

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			v := field[y*width+x]
			if v < 0 {
				v = 0
			} else if v > 1 {
				v = 1
			}
			c, err := cm.At(v)
			if err != nil {
				return nil, fmt.Errorf("colormap lookup at %.3f: %w", v, err)
			}
			img.Set(x, y, c)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode heatmap png: %w", err)
	}
	return buf.Bytes(), nil
}
