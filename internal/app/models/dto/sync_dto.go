package dto

// SyncStatusResponse reports the sync subsystem's health
type SyncStatusResponse struct {
	IsOnline          bool  `json:"isOnline"`
	PendingWrites     int64 `json:"pendingWrites"`
	PendingOperations int   `json:"pendingOperations"`
	DeadLettered      int   `json:"deadLettered"`
}

// ExportQuery selects templates for export; empty means the whole catalog
type ExportQuery struct {
	TemplateIDs []string `form:"templateId"`
	ExportedBy  string   `form:"exportedBy"`
}
