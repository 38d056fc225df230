package vision

import (
	"image"
	"math"

	"golang.org/x/image/draw"
)

// plane is a grayscale image as float luminance values.
type plane struct {
	w, h int
	pix  []float64
}

func (p *plane) at(x, y int) float64 {
	return p.pix[y*p.w+x]
}

// toGray converts any image to 8-bit luminance.
func toGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return g
	}
	b := img.Bounds()
	g := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(g, g.Bounds(), img, b.Min, draw.Src)
	return g
}

func planeOf(g *image.Gray) *plane {
	b := g.Bounds()
	p := &plane{w: b.Dx(), h: b.Dy(), pix: make([]float64, b.Dx()*b.Dy())}
	for y := 0; y < p.h; y++ {
		row := g.Pix[g.PixOffset(b.Min.X, b.Min.Y+y):]
		for x := 0; x < p.w; x++ {
			p.pix[y*p.w+x] = float64(row[x])
		}
	}
	return p
}

// resize scales g by factor s with bilinear sampling.
func resize(g *image.Gray, s float64) *image.Gray {
	b := g.Bounds()
	w := int(math.Round(float64(b.Dx()) * s))
	h := int(math.Round(float64(b.Dy()) * s))
	if w == b.Dx() && h == b.Dy() {
		return g
	}
	if w < 1 || h < 1 {
		return image.NewGray(image.Rect(0, 0, 0, 0))
	}
	dst := image.NewGray(image.Rect(0, 0, w, h))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), g, b, draw.Src, nil)
	return dst
}

// halve averages 2x2 blocks.
func halve(p *plane) *plane {
	out := &plane{w: p.w / 2, h: p.h / 2}
	out.pix = make([]float64, out.w*out.h)
	for y := 0; y < out.h; y++ {
		for x := 0; x < out.w; x++ {
			sx, sy := 2*x, 2*y
			out.pix[y*out.w+x] = (p.at(sx, sy) + p.at(sx+1, sy) + p.at(sx, sy+1) + p.at(sx+1, sy+1)) / 4
		}
	}
	return out
}

// integral holds summed-area tables of a plane and of its squares.
type integral struct {
	w    int
	sum  []float64
	sum2 []float64
}

func integralOf(p *plane) *integral {
	w := p.w + 1
	in := &integral{w: w, sum: make([]float64, w*(p.h+1)), sum2: make([]float64, w*(p.h+1))}
	for y := 0; y < p.h; y++ {
		var row, row2 float64
		for x := 0; x < p.w; x++ {
			v := p.at(x, y)
			row += v
			row2 += v * v
			in.sum[(y+1)*w+x+1] = in.sum[y*w+x+1] + row
			in.sum2[(y+1)*w+x+1] = in.sum2[y*w+x+1] + row2
		}
	}
	return in
}

func (in *integral) window(x, y, w, h int) (sum, sum2 float64) {
	a, b := y*in.w+x, y*in.w+x+w
	c, d := (y+h)*in.w+x, (y+h)*in.w+x+w
	return in.sum[d] - in.sum[b] - in.sum[c] + in.sum[a],
		in.sum2[d] - in.sum2[b] - in.sum2[c] + in.sum2[a]
}

// kernel is a zero-mean template.
type kernel struct {
	w, h int
	pix  []float64
	norm float64 // sum of squares of pix
}

func kernelOf(p *plane) *kernel {
	k := &kernel{w: p.w, h: p.h, pix: make([]float64, len(p.pix))}
	var mean float64
	for _, v := range p.pix {
		mean += v
	}
	mean /= float64(len(p.pix))
	for i, v := range p.pix {
		d := v - mean
		k.pix[i] = d
		k.norm += d * d
	}
	return k
}

// score is the normalized correlation coefficient of k placed at (x, y),
// in [-1, 1]. Flat windows or templates score 0.
func score(p *plane, in *integral, k *kernel, x, y int) float64 {
	if k.norm == 0 {
		return 0
	}
	n := float64(k.w * k.h)
	sum, sum2 := in.window(x, y, k.w, k.h)
	variance := sum2 - sum*sum/n
	if variance <= 1e-9 {
		return 0
	}
	var num float64
	for ty := 0; ty < k.h; ty++ {
		row := p.pix[(y+ty)*p.w+x:]
		krow := k.pix[ty*k.w:]
		for tx := 0; tx < k.w; tx++ {
			num += krow[tx] * row[tx]
		}
	}
	return num / math.Sqrt(k.norm*variance)
}

type candidate struct {
	x, y  int
	score float64
}

// level is one resolution of a coarse-to-fine search.
type level struct {
	screen *plane
	in     *integral
	tmpl   *kernel
}

const (
	// minPyramidSide is the smallest template side searched at a reduced resolution.
	minPyramidSide = 24
	maxPyramid     = 3
	keepCandidates = 6
	refineRadius   = 2
)

// bestMatch returns the top-left corner and score of the best placement of
// tmpl on screen. ok is false when the template does not fit.
func bestMatch(screen, tmpl *plane) (x, y int, s float64, ok bool) {
	if tmpl.w == 0 || tmpl.h == 0 || tmpl.w > screen.w || tmpl.h > screen.h {
		return 0, 0, 0, false
	}

	levels := []level{{screen: screen, in: integralOf(screen), tmpl: kernelOf(tmpl)}}
	sp, tp := screen, tmpl
	for len(levels) <= maxPyramid && tp.w/2 >= minPyramidSide/2 && tp.h/2 >= minPyramidSide/2 {
		sp, tp = halve(sp), halve(tp)
		levels = append(levels, level{screen: sp, in: integralOf(sp), tmpl: kernelOf(tp)})
	}

	top := levels[len(levels)-1]
	cands := exhaustive(top)
	for i := len(levels) - 2; i >= 0; i-- {
		cands = refine(levels[i], cands)
	}
	if len(cands) == 0 {
		return 0, 0, 0, false
	}
	best := cands[0]
	for _, c := range cands[1:] {
		if c.score > best.score {
			best = c
		}
	}
	return best.x, best.y, best.score, true
}

func exhaustive(l level) []candidate {
	var cands []candidate
	for y := 0; y+l.tmpl.h <= l.screen.h; y++ {
		for x := 0; x+l.tmpl.w <= l.screen.w; x++ {
			cands = keep(cands, candidate{x: x, y: y, score: score(l.screen, l.in, l.tmpl, x, y)})
		}
	}
	return cands
}

func refine(l level, coarse []candidate) []candidate {
	var cands []candidate
	for _, c := range coarse {
		cx, cy := 2*c.x, 2*c.y
		var best candidate
		found := false
		for y := cy - refineRadius; y <= cy+refineRadius; y++ {
			for x := cx - refineRadius; x <= cx+refineRadius; x++ {
				if x < 0 || y < 0 || x+l.tmpl.w > l.screen.w || y+l.tmpl.h > l.screen.h {
					continue
				}
				s := score(l.screen, l.in, l.tmpl, x, y)
				if !found || s > best.score {
					best, found = candidate{x: x, y: y, score: s}, true
				}
			}
		}
		if found {
			cands = append(cands, best)
		}
	}
	return cands
}

// keep inserts c into the running top list, sorted by descending score.
func keep(cands []candidate, c candidate) []candidate {
	if len(cands) == keepCandidates && c.score <= cands[len(cands)-1].score {
		return cands
	}
	i := len(cands)
	for i > 0 && cands[i-1].score < c.score {
		i--
	}
	cands = append(cands, candidate{})
	copy(cands[i+1:], cands[i:])
	cands[i] = c
	if len(cands) > keepCandidates {
		cands = cands[:keepCandidates]
	}
	return cands
}
