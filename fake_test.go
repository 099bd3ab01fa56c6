package bookcapture

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"
)

// fakeViewer is an in-memory viewer implementing [Page]. Every click on
// the next control, or press of the fallback key, shows the next page.
type fakeViewer struct {
	mu sync.Mutex

	total     int
	current   int
	showTotal bool   // Render the primary page count indicator.
	infoText  string // Text of the page info element; empty means absent.
	hasInput  bool
	hasNext   bool
	noAttr    bool // Wrappers carry no page attribute.

	initialNotReady bool
	notReady        map[int]bool   // Page whose image never finishes loading.
	srcs            map[int]string // Overrides the image source of a page.
	unloaded        map[int]bool   // Page whose wrapper is present but whose image has not loaded.
	locateFailures  map[int]int    // Calls to fail for a page before it is located.
	visibleFailures map[int]int    // Visible wrapper lookups to fail while a page is shown.
	noVisible       bool           // No wrapper is displayed.
	clickErr        error

	typed   string
	calls   map[string]int
	keys    []string
	clicks  int
	closed  bool
	closeN  int
	visited []int
}

func newFakeViewer(total int) *fakeViewer {
	return &fakeViewer{
		total:           total,
		current:         1,
		showTotal:       true,
		hasInput:        true,
		hasNext:         true,
		notReady:        map[int]bool{},
		srcs:            map[int]string{},
		unloaded:        map[int]bool{},
		locateFailures:  map[int]int{},
		visibleFailures: map[int]int{},
		calls:           map[string]int{},
		visited:         []int{1},
	}
}

var errFake = errors.New("fake viewer failure")

func (v *fakeViewer) Call(ctx context.Context, fn string, out any, args ...any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return ErrClosed
	}
	v.calls[fn]++

	var res any
	switch fn {
	case fnImagesReady:
		res = !v.initialNotReady
	case fnLastImageReady:
		res = !v.notReady[v.current]
	case fnImageVisible:
		res = true
	case fnLocateByAttribute:
		n := args[3].(int)
		if v.locateFailures[n] > 0 {
			v.locateFailures[n]--
			return errFake
		}
		if v.noAttr || n != v.current {
			res = PageElement{Wrappers: v.current}
			break
		}
		el := v.element()
		el.Matched = true
		if v.unloaded[n] {
			el = PageElement{Matched: true, Page: n, Wrappers: v.current}
		}
		res = el
	case fnLocateVisible:
		if v.visibleFailures[v.current] > 0 {
			v.visibleFailures[v.current]--
			return errFake
		}
		if v.noVisible {
			res = PageElement{Wrappers: v.current}
			break
		}
		el := v.element()
		if v.unloaded[v.current] && v.current > 1 {
			// The previous page is still on screen.
			el.Src = "blob:fake/" + strconv.Itoa(v.current-1)
			el.Page = v.current - 1
		}
		if v.noAttr {
			el.Page = 0
		}
		res = el
	case fnFirstPresent:
		res = ""
		for _, sel := range args[0].([]string) {
			if (sel == DefaultProfile().PageInputSelector && v.hasInput) ||
				(sel == DefaultProfile().NextSelectors[0] && v.hasNext) {
				res = sel
				break
			}
		}
	case fnClearInput:
		v.typed = ""
		res = v.hasInput
	case fnPageCountText:
		res = pageCountText{
			PrimaryFound:   v.showTotal,
			Primary:        strconv.Itoa(v.total),
			SecondaryFound: v.infoText != "",
			Secondary:      v.infoText,
		}
	case fnReadBlob:
		n, err := strconv.Atoi(strings.TrimPrefix(args[0].(string), "blob:fake/"))
		if err != nil {
			res = blobResult{Error: "TypeError: Failed to fetch"}
			break
		}
		res = blobResult{OK: true, DataURL: "data:image/png;base64," + base64.StdEncoding.EncodeToString(pageImage(n))}
	default:
		return fmt.Errorf("unknown helper %q", fn)
	}

	if out == nil {
		return nil
	}
	data, err := json.Marshal(res)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

func (v *fakeViewer) element() PageElement {
	src := "blob:fake/" + strconv.Itoa(v.current)
	if s, ok := v.srcs[v.current]; ok {
		src = s
	}
	return PageElement{Found: true, Src: src, Page: v.current, Wrappers: v.current}
}

func (v *fakeViewer) Click(ctx context.Context, selector string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.clickErr != nil {
		return v.clickErr
	}
	v.clicks++
	v.next()
	return nil
}

func (v *fakeViewer) Type(ctx context.Context, selector, text string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.typed += text
	return nil
}

func (v *fakeViewer) Press(ctx context.Context, key string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.keys = append(v.keys, key)
	switch key {
	case "Enter":
		if n, err := strconv.Atoi(v.typed); err == nil && n >= 1 && n <= v.total {
			v.current = n
			v.visited = append(v.visited, n)
		}
	case DefaultProfile().FallbackKey:
		v.next()
	}
	return nil
}

func (v *fakeViewer) next() {
	if v.current < v.total {
		v.current++
		v.visited = append(v.visited, v.current)
	}
}

func (v *fakeViewer) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.closed = true
	v.closeN++
	return nil
}

func (v *fakeViewer) callCount(fn string) int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.calls[fn]
}

// pageImage returns a PNG whose width identifies page n.
func pageImage(n int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, 10+n, 20))
	for x := range 10 + n {
		img.Set(x, 0, color.RGBA{R: uint8(n), A: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// fastTiming keeps every wait short enough for unit tests.
func fastTiming() Timing {
	return Timing{
		PollInterval:   5 * time.Millisecond,
		InitialTimeout: 100 * time.Millisecond,
		InitialSettle:  -1,
		PageTimeout:    50 * time.Millisecond,
		AdvanceSettle:  -1,
		CaptureTimeout: 50 * time.Millisecond,
		CaptureSettle:  -1,
		JumpDelay:      -1,
		JumpTimeout:    50 * time.Millisecond,
		JumpSettle:     -1,
		ActionTimeout:  time.Second,
	}
}

func testConfig(t *testing.T, opts ...Option) config {
	t.Helper()
	return newConfig(append([]Option{WithTiming(fastTiming())}, opts...))
}
