package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

func pathProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Absolute path to the photograph",
	}
}

func regionProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "object",
		"description": "Optional region of interest in photograph pixels; (x1, y1) inclusive, (x2, y2) exclusive",
		"properties": map[string]interface{}{
			"x1": map[string]interface{}{"type": "integer"},
			"y1": map[string]interface{}{"type": "integer"},
			"x2": map[string]interface{}{"type": "integer"},
			"y2": map[string]interface{}{"type": "integer"},
		},
		"required": []string{"x1", "y1", "x2", "y2"},
	}
}

func strategyProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"enum":        []string{"edge_blur", "fourier_gabor"},
		"description": "Segmentation strategy. Defaults to the configured strategy",
	}
}

func postProcessProperty() map[string]interface{} {
	stage := map[string]interface{}{
		"oneOf": []interface{}{
			map[string]interface{}{"type": "integer", "minimum": 0},
			map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"iterations": map[string]interface{}{"type": "integer", "minimum": 0},
				},
				"required": []string{"iterations"},
			},
		},
	}
	return map[string]interface{}{
		"type":        "object",
		"description": "Override morphology iterations; stages left out keep their configured values, 0 disables a stage",
		"properties": map[string]interface{}{
			"opening":  stage,
			"closing":  stage,
			"dilation": stage,
		},
	}
}

func overlayProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "boolean",
		"description": "Return a base64 PNG of the mask drawn over the photograph. Default true",
		"default":     true,
	}
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		{
			Name:        "image_load",
			Description: "Load a photograph and return its dimensions and format. The image stays cached for subsequent calls.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
				},
				"required": []string{"path"},
			},
		},

		// Grid analysis
		{
			Name:        "pellet_scale",
			Description: "Estimate the grid scale of a photograph of millimetre paper: the size of one pixel in millimetres along x and y, with uncertainties.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":   pathProperty(),
					"region": regionProperty(),
					"method": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"psd", "peaks"},
						"description": "psd: power spectral density mode (default); peaks: second spectral peak of the directional derivative",
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "pellet_slope",
			Description: "Estimate the rotation of the grid lines relative to the image axes, in degrees on [0, 90).",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":   pathProperty(),
					"region": regionProperty(),
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "pellet_edges",
			Description: "Run the Canny edge detector used for slope estimation and return the edge map drawn over the working image.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":   pathProperty(),
					"region": regionProperty(),
				},
				"required": []string{"path"},
			},
		},

		// Measurement
		{
			Name:        "pellet_segment",
			Description: "Separate the pellet from the ruled background and return the foreground pixel count and an overlay.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":         pathProperty(),
					"region":       regionProperty(),
					"strategy":     strategyProperty(),
					"post_process": postProcessProperty(),
					"overlay":      overlayProperty(),
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "pellet_measure",
			Description: "Measure the pellet area in square millimetres: grid scale, segmentation and propagated uncertainty, with an optional overlay of the detected pellet.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":         pathProperty(),
					"region":       regionProperty(),
					"strategy":     strategyProperty(),
					"post_process": postProcessProperty(),
					"overlay":      overlayProperty(),
					"auto_align": map[string]interface{}{
						"type":        "boolean",
						"description": "De-rotate the photograph to the grid before measuring. Defaults to the configured value",
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "pellet_calibrate",
			Description: "Compute the area of one working-size pixel from a label mask of an object with known area.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"mask_path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the label mask; foreground is white",
					},
					"known_area": map[string]interface{}{
						"type":        "number",
						"description": "Area of the labelled object in square millimetres",
					},
				},
				"required": []string{"mask_path", "known_area"},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
