package handler

import (
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"agrimarket/internal/pipeline"
	"agrimarket/internal/store"
)

type IngestHandler struct {
	Pipelines map[string]*pipeline.Pipeline
	Store     store.PeriodStore
	Logger    *zap.Logger
}

func (h *IngestHandler) Register(r *gin.Engine) {
	group := r.Group("/api/ingest")
	group.POST("/run", h.run)
	group.GET("/runs", h.listRuns)
	group.GET("/families", h.listFamilies)
}

// run triggers one synchronous ingestion pass. With ?family= only that
// family runs; otherwise every configured family runs in name order and a
// single failure fails the request after the remaining families finish.
func (h *IngestHandler) run(c *gin.Context) {
	if len(h.Pipelines) == 0 {
		Error(c, http.StatusInternalServerError, "no pipelines configured", nil)
		return
	}

	var names []string
	if family := strings.TrimSpace(c.Query("family")); family != "" {
		if _, ok := h.Pipelines[family]; !ok {
			Error(c, http.StatusNotFound, "unknown family: "+family, nil)
			return
		}
		names = []string{family}
	} else {
		for name := range h.Pipelines {
			names = append(names, name)
		}
		sort.Strings(names)
	}

	results := make([]pipeline.Result, 0, len(names))
	var failed []string
	for _, name := range names {
		result, err := h.Pipelines[name].Run(c.Request.Context())
		results = append(results, result)
		if err != nil {
			if h.Logger != nil {
				h.Logger.Warn("ingest run failed", zap.String("family", name), zap.Error(err))
			}
			failed = append(failed, name+": "+err.Error())
		}
	}
	if len(failed) > 0 {
		Error(c, http.StatusBadGateway, strings.Join(failed, "; "), map[string]any{
			"results": results,
		})
		return
	}
	Ok(c, results, nil)
}

func (h *IngestHandler) listRuns(c *gin.Context) {
	if h.Store == nil {
		Error(c, http.StatusInternalServerError, "store unavailable", nil)
		return
	}
	family := strings.TrimSpace(c.Query("family"))
	limit := intQuery(c, "limit", 0)
	runs, err := h.Store.ListRuns(c.Request.Context(), family, limit)
	if err != nil {
		if h.Logger != nil {
			h.Logger.Warn("list runs failed", zap.Error(err))
		}
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, runs, nil)
}

func (h *IngestHandler) listFamilies(c *gin.Context) {
	families := make([]gin.H, 0, len(h.Pipelines))
	names := make([]string, 0, len(h.Pipelines))
	for name := range h.Pipelines {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fam := h.Pipelines[name].Family
		families = append(families, gin.H{
			"name":           fam.Name,
			"dataset":        fam.Dataset,
			"commodities":    fam.Commodities,
			"grade_sex":      fam.GradeSex,
			"rollover_guard": fam.RolloverGuard,
		})
	}
	Ok(c, families, nil)
}

func intQuery(c *gin.Context, key string, def int) int {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}
