package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/storefront/api/middleware"
	"github.com/angelmondragon/storefront/api/responses"
	"github.com/angelmondragon/storefront/internal/reports"
	"github.com/angelmondragon/storefront/pkg/auth"
	"github.com/angelmondragon/storefront/pkg/logger"
)

type inventoryReporter interface {
	InventoryWorkbook(ctx context.Context, actor auth.Actor) ([]byte, error)
}

// AdminInventoryReport downloads the inventory workbook.
func AdminInventoryReport(svc inventoryReporter, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("report"))
			return
		}

		body, err := svc.InventoryWorkbook(r.Context(), middleware.ActorFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteAttachment(w, reports.ContentType, "inventory.xlsx", body)
	}
}
