package export

// ExportRequest asks for a workspace document to be written to a local
// directory instead of downloaded.
type ExportRequest struct {
	OutputDir string `json:"output_dir"`
	FileName  string `json:"file_name"`
}

type ExportResponse struct {
	Status     string `json:"status"`
	Version    int    `json:"version"`
	OutputPath string `json:"output_path"`
	SceneCount int    `json:"scene_count"`
}
