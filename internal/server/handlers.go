package server

import (
	"encoding/json"
	"fmt"
	"image"
	"reflect"
	"time"

	"github.com/mitchellh/mapstructure"

	"github.com/ironsheep/pellet-mcp/internal/area"
	"github.com/ironsheep/pellet-mcp/internal/imaging"
	"github.com/ironsheep/pellet-mcp/internal/measure"
	"github.com/ironsheep/pellet-mcp/internal/segment"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "image_load", "pellet_measure").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	start := time.Now()
	result, err := s.executeTool(params.Name, params.Arguments)
	if err != nil {
		s.log.Error("server", err, map[string]interface{}{"tool": params.Name})
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}
	s.log.Debug("server", "tool finished", map[string]interface{}{
		"tool":        params.Name,
		"duration_ms": time.Since(start).Milliseconds(),
	})

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
//
// Each tool handler:
//  1. Unmarshals arguments from JSON
//  2. Loads the photograph through the cache and resamples it
//  3. Builds estimators from the server configuration
//  4. Returns the result or error
func (s *Server) executeTool(name string, args json.RawMessage) (interface{}, error) {
	switch name {
	case "image_load":
		return s.handleImageLoad(args)

	// Grid analysis
	case "pellet_scale":
		return s.handlePelletScale(args)
	case "pellet_slope":
		return s.handlePelletSlope(args)
	case "pellet_edges":
		return s.handlePelletEdges(args)

	// Measurement
	case "pellet_segment":
		return s.handlePelletSegment(args)
	case "pellet_measure":
		return s.handlePelletMeasure(args)
	case "pellet_calibrate":
		return s.handlePelletCalibrate(args)

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// Panics are suppressed; on marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// imageArgs are shared by every tool that reads a photograph.
type imageArgs struct {
	Path   string          `json:"path"`
	Region *imaging.Region `json:"region,omitempty"`
}

// load returns the working grayscale image for a, together with the
// (cropped) photograph it was derived from.
func (s *Server) load(a imageArgs) (*imaging.Gray, image.Image, error) {
	if a.Path == "" {
		return nil, nil, fmt.Errorf("path is required")
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, nil, err
	}
	if a.Region != nil {
		if img, err = imaging.Crop(img, *a.Region); err != nil {
			return nil, nil, err
		}
	}
	g, err := imaging.Prepare(img, s.cfg.Image.WorkingSize)
	if err != nil {
		return nil, nil, err
	}
	return g, img, nil
}

// === Image Information ===

type imageLoadArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleImageLoad(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return imaging.LoadImageInfo(s.cache, a.Path)
}

// === Grid Analysis ===

type pelletScaleArgs struct {
	imageArgs
	Method measure.ScaleMethod `json:"method"`
}

func (s *Server) handlePelletScale(args json.RawMessage) (interface{}, error) {
	var a pelletScaleArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	g, _, err := s.load(a.imageArgs)
	if err != nil {
		return nil, err
	}
	est := s.cfg.ScaleEstimator(s.log)
	if a.Method != "" {
		est.Method = a.Method
	}
	return est.Estimate(g)
}

func (s *Server) handlePelletSlope(args json.RawMessage) (interface{}, error) {
	var a imageArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	g, _, err := s.load(a)
	if err != nil {
		return nil, err
	}
	return s.cfg.SlopeEstimator(s.log).Estimate(g)
}

// EdgesResult reports the Canny edge map used for slope estimation.
type EdgesResult struct {
	EdgePixels int                    `json:"edge_pixels"`
	Width      int                    `json:"width"`
	Height     int                    `json:"height"`
	Overlay    *imaging.OverlayResult `json:"overlay"`
}

func (s *Server) handlePelletEdges(args json.RawMessage) (interface{}, error) {
	var a imageArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	g, _, err := s.load(a)
	if err != nil {
		return nil, err
	}
	edges := measure.Canny(g, s.cfg.Slope.Canny)
	overlay, err := imaging.RenderOverlay(g.ToImage(), edges, imaging.DefaultOverlayOptions())
	if err != nil {
		return nil, err
	}
	return &EdgesResult{
		EdgePixels: edges.Count(),
		Width:      edges.Width,
		Height:     edges.Height,
		Overlay:    overlay,
	}, nil
}

// === Measurement ===

// segmentArgs select and tune the segmentation strategy.
type segmentArgs struct {
	imageArgs
	Strategy segment.Strategy `json:"strategy"`
	// PostProcess overrides morphology stages, either as plain counts
	// ({"opening": 3}) or as {"opening": {"iterations": 3}}.
	PostProcess map[string]interface{} `json:"post_process,omitempty"`
	Overlay     *bool                  `json:"overlay,omitempty"`
}

func (a segmentArgs) wantOverlay() bool {
	return a.Overlay == nil || *a.Overlay
}

func (s *Server) segmenter(a segmentArgs) (segment.Segmenter, error) {
	seg, err := s.cfg.Segmenter(a.Strategy, s.log)
	if err != nil {
		return nil, err
	}
	if len(a.PostProcess) == 0 {
		return seg, nil
	}
	switch seg := seg.(type) {
	case *segment.EdgeBlur:
		err = decodePostProcess(a.PostProcess, &seg.Morphology)
	case *segment.FourierGabor:
		err = decodePostProcess(a.PostProcess, &seg.Morphology)
	default:
		err = fmt.Errorf("strategy %q does not support post_process", a.Strategy)
	}
	if err != nil {
		return nil, err
	}
	return seg, nil
}

// decodePostProcess merges raw over m. Stages missing from raw keep their
// configured counts; unknown stages are rejected.
func decodePostProcess(raw map[string]interface{}, m *segment.Morphology) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       unwrapIterations,
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		Result:           m,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(raw); err != nil {
		return fmt.Errorf("invalid post_process: %w", err)
	}
	if m.Opening < 0 || m.Closing < 0 || m.Dilation < 0 {
		return fmt.Errorf("invalid post_process: iterations must not be negative")
	}
	return nil
}

// unwrapIterations accepts {"iterations": n} wherever a count is expected.
func unwrapIterations(_, to reflect.Type, data interface{}) (interface{}, error) {
	if to.Kind() != reflect.Int {
		return data, nil
	}
	stage, ok := data.(map[string]interface{})
	if !ok {
		return data, nil
	}
	n, ok := stage["iterations"]
	if !ok || len(stage) != 1 {
		return nil, fmt.Errorf("stage must be a count or {\"iterations\": n}")
	}
	return n, nil
}

// SegmentResult is the foreground mask of one photograph.
type SegmentResult struct {
	Pixels   int                    `json:"pixels"`
	Fraction float64                `json:"fraction"`
	Width    int                    `json:"width"`
	Height   int                    `json:"height"`
	Overlay  *imaging.OverlayResult `json:"overlay,omitempty"`
}

func (s *Server) handlePelletSegment(args json.RawMessage) (interface{}, error) {
	var a segmentArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	seg, err := s.segmenter(a)
	if err != nil {
		return nil, err
	}
	g, img, err := s.load(a.imageArgs)
	if err != nil {
		return nil, err
	}
	scale, err := s.cfg.ScaleEstimator(s.log).Estimate(g)
	if err != nil {
		return nil, err
	}
	mask, err := seg.Segment(g, scale)
	if err != nil {
		return nil, err
	}

	res := &SegmentResult{
		Pixels:   mask.Count(),
		Fraction: float64(mask.Count()) / float64(len(mask.Pix)),
		Width:    mask.Width,
		Height:   mask.Height,
	}
	if a.wantOverlay() {
		if res.Overlay, err = imaging.RenderOverlay(img, mask, imaging.DefaultOverlayOptions()); err != nil {
			return nil, err
		}
	}
	return res, nil
}

type pelletMeasureArgs struct {
	segmentArgs
	AutoAlign *bool `json:"auto_align,omitempty"`
}

// MeasureResult is the pellet area with every intermediate estimate.
type MeasureResult struct {
	*area.Result
	Overlay *imaging.OverlayResult `json:"overlay,omitempty"`
}

func (s *Server) handlePelletMeasure(args json.RawMessage) (interface{}, error) {
	var a pelletMeasureArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	est, err := s.cfg.Estimator(a.Strategy, s.log)
	if err != nil {
		return nil, err
	}
	if est.Segmenter, err = s.segmenter(a.segmentArgs); err != nil {
		return nil, err
	}
	if a.AutoAlign != nil {
		est.AutoAlign = *a.AutoAlign
	}

	g, img, err := s.load(a.imageArgs)
	if err != nil {
		return nil, err
	}
	res, err := est.Measure(g)
	if err != nil {
		return nil, err
	}

	out := &MeasureResult{Result: res}
	if a.wantOverlay() {
		base := img
		if res.Slope != nil {
			// The mask follows the de-rotated image, not the photograph.
			base = res.Image.ToImage()
		}
		if out.Overlay, err = imaging.RenderOverlay(base, res.Mask, imaging.DefaultOverlayOptions()); err != nil {
			return nil, err
		}
	}
	return out, nil
}

type pelletCalibrateArgs struct {
	MaskPath  string  `json:"mask_path"`
	KnownArea float64 `json:"known_area"`
}

// CalibrateResult is the pixel scale implied by a labelled reference.
type CalibrateResult struct {
	PixelArea float64 `json:"pixel_area"`
	Pixels    int     `json:"pixels"`
}

func (s *Server) handlePelletCalibrate(args json.RawMessage) (interface{}, error) {
	var a pelletCalibrateArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.KnownArea <= 0 {
		return nil, fmt.Errorf("known_area must be positive")
	}
	g, _, err := s.load(imageArgs{Path: a.MaskPath})
	if err != nil {
		return nil, err
	}
	mask := imaging.MaskFromImage(g.ToImage())
	pixelArea, err := area.ScaleFromMask(a.KnownArea, mask)
	if err != nil {
		return nil, err
	}
	return &CalibrateResult{PixelArea: pixelArea, Pixels: mask.Count()}, nil
}
