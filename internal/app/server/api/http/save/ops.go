package save

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

var bearer = []map[string][]string{{"bearer": {}}}

func (h *Handler) listOp() huma.Operation {
	return huma.Operation{
		OperationID: "saves-list",
		Method:      http.MethodGet,
		Path:        "/api/v1/saves",
		Summary:     "List save slot metadata",
		Tags:        []string{"saves"},
		Security:    bearer,
		Middlewares: h.middleware,
	}
}

func (h *Handler) getOp() huma.Operation {
	return huma.Operation{
		OperationID: "saves-get",
		Method:      http.MethodGet,
		Path:        "/api/v1/saves/{slot}",
		Summary:     "Download a save slot",
		Tags:        []string{"saves"},
		Security:    bearer,
		Middlewares: h.middleware,
	}
}

func (h *Handler) putOp() huma.Operation {
	return huma.Operation{
		OperationID: "saves-put",
		Method:      http.MethodPut,
		Path:        "/api/v1/saves/{slot}",
		Summary:     "Upload a save slot",
		Description: "Replaces the slot content. The checksum is recomputed and the upload is rejected on mismatch.",
		Tags:        []string{"saves"},
		Security:    bearer,
		Middlewares: h.middleware,
	}
}

func (h *Handler) deleteOp() huma.Operation {
	return huma.Operation{
		OperationID:   "saves-delete",
		Method:        http.MethodDelete,
		Path:          "/api/v1/saves/{slot}",
		Summary:       "Delete a save slot",
		Tags:          []string{"saves"},
		Security:      bearer,
		DefaultStatus: http.StatusNoContent,
		Middlewares:   h.middleware,
	}
}
