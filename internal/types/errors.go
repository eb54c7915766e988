package types

// API error codes. Prefix names the resource, suffix the HTTP status.
const (
	CodeDeployBadRequest  = "DEPLOY_400"
	CodeDeployUnprocessed = "DEPLOY_422"
	CodeDeployFailed      = "DEPLOY_500"
	CodeNodesBadRequest   = "NODES_400"
	CodeNodesNotFound     = "NODES_404"
	CodeNodesConflict     = "NODES_409"
	CodeNodesFailed       = "NODES_500"
	CodeCatalogNotFound   = "CATALOG_404"
	CodeCatalogFailed     = "CATALOG_500"
	CodeHistoryBadRequest = "HISTORY_400"
	CodeHistoryNotFound   = "HISTORY_404"
	CodeHistoryFailed     = "HISTORY_500"
	CodeAuthBadRequest    = "AUTH_400"
	CodeAuthUnauthorized  = "AUTH_401"
	CodeAuthForbidden     = "AUTH_403"
	CodeAuthFailed        = "AUTH_500"
)

type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// NewErrorResponse builds a consistent API error payload.
// details can be string, map, struct, validation errors, etc.
func NewErrorResponse(code, message string, details any) ErrorResponse {
	return ErrorResponse{
		Error: ErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}
