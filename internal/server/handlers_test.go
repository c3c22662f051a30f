package server

import (
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/ironsheep/pellet-mcp/internal/segment"
)

// createPelletPhoto writes a 256x256 photograph of graph paper ruled every 8
// pixels with a featureless disc in the middle, and returns its path.
func createPelletPhoto(t *testing.T) string {
	t.Helper()
	const size = 256
	rng := rand.New(rand.NewSource(7))
	img := image.NewGray(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			v := 0.9
			if x%8 < 2 || y%8 < 2 {
				v = 0.2
			}
			if math.Hypot(float64(x-size/2), float64(y-size/2)) < 60 {
				v = 0.6
			}
			v += 0.02 * rng.NormFloat64()
			img.SetGray(x, y, color.Gray{Y: uint8(math.Max(0, math.Min(255, v*255)))})
		}
	}
	return writePNG(t, "photo.png", img)
}

// createSquareMask writes a 256x256 label with a white side x side square.
func createSquareMask(t *testing.T, side int) string {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 256, 256))
	for y := 0; y < side; y++ {
		for x := 0; x < side; x++ {
			img.SetGray(x+10, y+10, color.Gray{Y: 255})
		}
	}
	return writePNG(t, "mask.png", img)
}

func writePNG(t *testing.T, name string, img image.Image) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create file: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("failed to encode image: %v", err)
	}
	return path
}

func callTool(t *testing.T, s *Server, name string, args map[string]interface{}) *MCPResponse {
	t.Helper()
	params := map[string]interface{}{
		"name":      name,
		"arguments": args,
	}
	paramsJSON, _ := json.Marshal(params)

	resp := s.handleRequest(&MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "tools/call",
		Params:  paramsJSON,
	})
	if resp == nil {
		t.Fatal("handleRequest returned nil")
	}
	return resp
}

// decodeResult unpacks the JSON text content of a successful tool call.
func decodeResult(t *testing.T, resp *MCPResponse, v interface{}) {
	t.Helper()
	if resp.Error != nil {
		t.Fatalf("Unexpected error: %v (%v)", resp.Error.Message, resp.Error.Data)
	}
	result := resp.Result.(map[string]interface{})
	content := result["content"].([]map[string]interface{})
	if len(content) != 1 || content[0]["type"] != "text" {
		t.Fatalf("unexpected content: %v", content)
	}
	if err := json.Unmarshal([]byte(content[0]["text"].(string)), v); err != nil {
		t.Fatalf("result is not JSON: %v", err)
	}
}

func TestHandleToolsCall_ImageLoad(t *testing.T) {
	s := New(nil, nil)
	path := createPelletPhoto(t)

	var info struct {
		Width     int    `json:"width"`
		Height    int    `json:"height"`
		Format    string `json:"format"`
		Grayscale bool   `json:"grayscale"`
	}
	decodeResult(t, callTool(t, s, "image_load", map[string]interface{}{"path": path}), &info)

	if info.Width != 256 || info.Height != 256 {
		t.Errorf("dimensions: got %dx%d, want 256x256", info.Width, info.Height)
	}
	if info.Format != "png" || !info.Grayscale {
		t.Errorf("format: got %s grayscale=%v", info.Format, info.Grayscale)
	}
}

func TestHandleToolsCall_Errors(t *testing.T) {
	s := New(nil, nil)
	photo := createPelletPhoto(t)

	tests := []struct {
		name string
		tool string
		args map[string]interface{}
	}{
		{"unknown tool", "image_crop", map[string]interface{}{"path": photo}},
		{"missing file", "pellet_scale", map[string]interface{}{"path": "/nonexistent/photo.png"}},
		{"missing path", "pellet_measure", map[string]interface{}{}},
		{"region outside image", "pellet_slope", map[string]interface{}{
			"path":   photo,
			"region": map[string]interface{}{"x1": 0, "y1": 0, "x2": 300, "y2": 100},
		}},
		{"unknown strategy", "pellet_measure", map[string]interface{}{"path": photo, "strategy": "watershed"}},
		{"unknown scale method", "pellet_scale", map[string]interface{}{"path": photo, "method": "wavelet"}},
		{"unknown stage", "pellet_segment", map[string]interface{}{
			"path":         photo,
			"post_process": map[string]interface{}{"erosion": 2},
		}},
		{"non-positive area", "pellet_calibrate", map[string]interface{}{"mask_path": photo, "known_area": 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := callTool(t, s, tt.tool, tt.args)
			if resp.Error == nil {
				t.Fatal("Expected error")
			}
			if resp.Error.Code != -32000 {
				t.Errorf("Error code: got %d, want -32000", resp.Error.Code)
			}
		})
	}
}

func TestHandleToolsCall_InvalidParams(t *testing.T) {
	s := New(nil, nil)
	resp := s.handleRequest(&MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "tools/call",
		Params:  json.RawMessage(`[1, 2]`),
	})

	if resp.Error == nil {
		t.Fatal("Expected error for invalid params")
	}
	if resp.Error.Code != -32602 {
		t.Errorf("Error code: got %d, want -32602", resp.Error.Code)
	}
}

func TestHandleToolsCall_PelletScale(t *testing.T) {
	s := New(nil, nil)
	path := createPelletPhoto(t)

	var scale struct {
		Fx      float64 `json:"fx"`
		Fy      float64 `json:"fy"`
		Error   float64 `json:"error"`
		Clamped bool    `json:"clamped"`
	}
	decodeResult(t, callTool(t, s, "pellet_scale", map[string]interface{}{"path": path}), &scale)

	for name, f := range map[string]float64{"fx": scale.Fx, "fy": scale.Fy} {
		if f < 0.1 || f > 0.15 {
			t.Errorf("%s: got %v, want near 0.125", name, f)
		}
	}
	if scale.Clamped {
		t.Error("scale should not be clamped on a ruled photograph")
	}
}

func TestHandleToolsCall_PelletSlope(t *testing.T) {
	s := New(nil, nil)
	path := createPelletPhoto(t)

	var slope struct {
		Angle float64 `json:"angle_degrees"`
		Lines int     `json:"lines"`
	}
	decodeResult(t, callTool(t, s, "pellet_slope", map[string]interface{}{"path": path}), &slope)

	if slope.Angle < 0 || slope.Angle >= 90 {
		t.Errorf("angle: got %v, want [0, 90)", slope.Angle)
	}
	if slope.Lines == 0 {
		t.Error("expected at least one line")
	}
}

func TestHandleToolsCall_PelletEdges(t *testing.T) {
	s := New(nil, nil)
	path := createPelletPhoto(t)

	var edges EdgesResult
	decodeResult(t, callTool(t, s, "pellet_edges", map[string]interface{}{"path": path}), &edges)

	if edges.EdgePixels == 0 {
		t.Error("expected edges on a ruled photograph")
	}
	if edges.Overlay == nil || edges.Overlay.ImageBase64 == "" {
		t.Error("expected an edge overlay")
	}
}

func TestHandleToolsCall_PelletSegment(t *testing.T) {
	s := New(nil, nil)
	path := createPelletPhoto(t)

	for _, strategy := range []string{"edge_blur", "fourier_gabor"} {
		t.Run(strategy, func(t *testing.T) {
			var seg SegmentResult
			decodeResult(t, callTool(t, s, "pellet_segment", map[string]interface{}{
				"path":     path,
				"strategy": strategy,
				"overlay":  false,
			}), &seg)

			if seg.Width != 256 || seg.Height != 256 {
				t.Errorf("mask size: got %dx%d", seg.Width, seg.Height)
			}
			if seg.Fraction < 0 || seg.Fraction > 1 {
				t.Errorf("fraction: got %v", seg.Fraction)
			}
			if seg.Overlay != nil {
				t.Error("overlay was not requested")
			}
		})
	}
}

func TestHandleToolsCall_PelletMeasure(t *testing.T) {
	s := New(nil, nil)
	path := createPelletPhoto(t)

	var res struct {
		Scale struct {
			Fx float64 `json:"fx"`
			Fy float64 `json:"fy"`
		} `json:"scale"`
		Slope       *json.RawMessage `json:"slope"`
		Measurement struct {
			Area   float64 `json:"area"`
			Error  float64 `json:"error"`
			Pixels int     `json:"pixels"`
		} `json:"measurement"`
		Overlay *struct {
			Width       int    `json:"width"`
			ImageBase64 string `json:"image_base64"`
		} `json:"overlay"`
	}
	decodeResult(t, callTool(t, s, "pellet_measure", map[string]interface{}{
		"path":         path,
		"post_process": map[string]interface{}{"opening": map[string]interface{}{"iterations": 2}},
	}), &res)

	want := float64(res.Measurement.Pixels) * res.Scale.Fx * res.Scale.Fy
	if math.Abs(res.Measurement.Area-want) > 1e-9 {
		t.Errorf("area: got %v, want pixels*fx*fy = %v", res.Measurement.Area, want)
	}
	if res.Measurement.Error < 0 {
		t.Errorf("error: got %v", res.Measurement.Error)
	}
	if res.Slope != nil {
		t.Error("slope should be omitted without alignment")
	}
	if res.Overlay == nil || res.Overlay.Width != 256 || res.Overlay.ImageBase64 == "" {
		t.Error("expected an overlay at photograph size")
	}
}

func TestHandleToolsCall_PelletMeasure_AutoAlign(t *testing.T) {
	s := New(nil, nil)
	path := createPelletPhoto(t)

	var res struct {
		Slope *struct {
			Angle float64 `json:"angle_degrees"`
		} `json:"slope"`
	}
	decodeResult(t, callTool(t, s, "pellet_measure", map[string]interface{}{
		"path":       path,
		"auto_align": true,
		"overlay":    false,
		"region":     map[string]interface{}{"x1": 0, "y1": 0, "x2": 256, "y2": 256},
	}), &res)

	if res.Slope == nil {
		t.Fatal("expected the slope of the alignment")
	}
}

func TestHandleToolsCall_PelletCalibrate(t *testing.T) {
	s := New(nil, nil)
	path := createSquareMask(t, 64)

	var res CalibrateResult
	decodeResult(t, callTool(t, s, "pellet_calibrate", map[string]interface{}{
		"mask_path":  path,
		"known_area": 8.0,
	}), &res)

	if res.Pixels != 64*64 {
		t.Errorf("pixels: got %d, want %d", res.Pixels, 64*64)
	}
	if math.Abs(res.PixelArea-8.0/4096) > 1e-12 {
		t.Errorf("pixel area: got %v, want %v", res.PixelArea, 8.0/4096)
	}
}

func TestDecodePostProcess(t *testing.T) {
	base := segment.Morphology{Opening: 14, Closing: 33, Dilation: 12}

	tests := []struct {
		name    string
		raw     map[string]interface{}
		want    segment.Morphology
		wantErr bool
	}{
		{
			name: "plain counts",
			raw:  map[string]interface{}{"opening": 3.0, "dilation": 0.0},
			want: segment.Morphology{Opening: 3, Closing: 33, Dilation: 0},
		},
		{
			name: "iteration objects",
			raw: map[string]interface{}{
				"closing": map[string]interface{}{"iterations": 5.0},
			},
			want: segment.Morphology{Opening: 14, Closing: 5, Dilation: 12},
		},
		{
			name: "string count",
			raw:  map[string]interface{}{"opening": "2"},
			want: segment.Morphology{Opening: 2, Closing: 33, Dilation: 12},
		},
		{
			name:    "unknown stage",
			raw:     map[string]interface{}{"erosion": 1.0},
			wantErr: true,
		},
		{
			name:    "unknown stage key",
			raw:     map[string]interface{}{"opening": map[string]interface{}{"count": 1.0}},
			wantErr: true,
		},
		{
			name:    "negative",
			raw:     map[string]interface{}{"closing": -1.0},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := base
			err := decodePostProcess(tt.raw, &m)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("decodePostProcess failed: %v", err)
			}
			if m != tt.want {
				t.Errorf("got %+v, want %+v", m, tt.want)
			}
		})
	}
}

func TestMustMarshalJSON(t *testing.T) {
	if got := mustMarshalJSON(map[string]int{"a": 1}); got != "{\n  \"a\": 1\n}" {
		t.Errorf("got %q", got)
	}
	if got := mustMarshalJSON(math.NaN()); got != "" {
		t.Errorf("unmarshalable value: got %q, want empty", got)
	}
}
