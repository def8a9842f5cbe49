package model

type PipelineRun struct {
	ID         int64  `json:"id"`
	Stage      string `json:"stage"`
	Documents  int    `json:"documents"`
	Chunks     int    `json:"chunks"`
	Embedded   int    `json:"embedded"`
	Failed     int    `json:"failed"`
	Status     string `json:"status"`
	Error      string `json:"error"`
	StartedAt  int64  `json:"started_at"`
	DurationMs int64  `json:"duration_ms"`
}
