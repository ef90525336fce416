package ocr

import (
	"fmt"
	"image"
	"image/color"
	"strings"

	"github.com/disintegration/imaging"
)

// Preprocess applies the fixed OCR recipe: grayscale, 3x3 median denoise, unsharp-mask
// local contrast enhancement, mild gaussian blur, then Otsu binarization.
func Preprocess(src image.Image) *image.Gray {
	img := toGray(imaging.Grayscale(src))
	img = median3(img)
	sharp := imaging.Sharpen(img, 8.0)
	soft := imaging.Blur(sharp, 0.5)
	return binarize(toGray(soft))
}

// preprocessFile writes the preprocessed image next to the source page.
func preprocessFile(path string) (string, error) {
	src, err := imaging.Open(path)
	if err != nil {
		return "", fmt.Errorf("open page image: %w", err)
	}
	out := strings.TrimSuffix(path, ".png") + "-bin.png"
	if err := imaging.Save(Preprocess(src), out); err != nil {
		return "", fmt.Errorf("save preprocessed page: %w", err)
	}
	return out, nil
}

func toGray(src image.Image) *image.Gray {
	b := src.Bounds()
	dst := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			dst.Set(x, y, color.GrayModel.Convert(src.At(b.Min.X+x, b.Min.Y+y)))
		}
	}
	return dst
}

// median3 replaces each pixel by the median of its 3x3 neighbourhood (edges clamp).
func median3(src *image.Gray) *image.Gray {
	w, h := src.Rect.Dx(), src.Rect.Dy()
	dst := image.NewGray(src.Rect)
	var win [9]uint8
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			n := 0
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					win[n] = src.GrayAt(clamp(x+dx, w), clamp(y+dy, h)).Y
					n++
				}
			}
			insertionSort(&win)
			dst.SetGray(x, y, color.Gray{Y: win[4]})
		}
	}
	return dst
}

func insertionSort(w *[9]uint8) {
	for i := 1; i < len(w); i++ {
		for j := i; j > 0 && w[j] < w[j-1]; j-- {
			w[j], w[j-1] = w[j-1], w[j]
		}
	}
}

func clamp(v, n int) int {
	if v < 0 {
		return 0
	}
	if v >= n {
		return n - 1
	}
	return v
}

// otsuThreshold picks the global level maximising between-class variance.
func otsuThreshold(img *image.Gray) uint8 {
	var hist [256]int
	for _, p := range img.Pix {
		hist[p]++
	}
	total := len(img.Pix)
	if total == 0 {
		return 128
	}

	var sumAll float64
	for i, c := range hist {
		sumAll += float64(i * c)
	}

	var sumB float64
	var wB int
	var best float64
	var threshold uint8
	for t := 0; t < 256; t++ {
		wB += hist[t]
		if wB == 0 {
			continue
		}
		wF := total - wB
		if wF == 0 {
			break
		}
		sumB += float64(t * hist[t])
		mB := sumB / float64(wB)
		mF := (sumAll - sumB) / float64(wF)
		between := float64(wB) * float64(wF) * (mB - mF) * (mB - mF)
		if between > best {
			best = between
			threshold = uint8(t)
		}
	}
	return threshold
}

func binarize(img *image.Gray) *image.Gray {
	t := otsuThreshold(img)
	dst := image.NewGray(img.Rect)
	for i, p := range img.Pix {
		if p > t {
			dst.Pix[i] = 255
		}
	}
	return dst
}
