package api

import (
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"

	"device-monitor-backend/internal/model"
)

type statusCount struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

type stateStats struct {
	State   string `json:"state"`
	Online  int    `json:"online"`
	Offline int    `json:"offline"`
	Unknown int    `json:"unknown"`
}

type statsSummary struct {
	Total   int `json:"total"`
	Online  int `json:"online"`
	Offline int `json:"offline"`
	Unknown int `json:"unknown"`
}

// GetChartData aggregates device status counts overall and per branch
// jurisdiction. Devices without a branch (or with a dangling branch
// reference) are grouped under "Unassigned".
func (h *Handler) GetChartData(c *gin.Context) {
	ctx := c.Request.Context()

	devices, err := h.store.ListDevices(ctx)
	if err != nil {
		h.respondStoreError(c, err, "")
		return
	}
	branches, err := h.store.ListBranches(ctx)
	if err != nil {
		h.respondStoreError(c, err, "")
		return
	}

	stateByBranch := make(map[string]string, len(branches))
	for _, b := range branches {
		stateByBranch[b.ID] = b.State
	}

	summary := statsSummary{Total: len(devices)}
	byState := make(map[string]*stateStats)

	for _, device := range devices {
		state := "Unassigned"
		if device.BranchID != nil {
			if s, ok := stateByBranch[*device.BranchID]; ok {
				state = s
			}
		}
		stats, ok := byState[state]
		if !ok {
			stats = &stateStats{State: state}
			byState[state] = stats
		}

		switch device.Status {
		case model.StatusOnline:
			summary.Online++
			stats.Online++
		case model.StatusOffline:
			summary.Offline++
			stats.Offline++
		default:
			summary.Unknown++
			stats.Unknown++
		}
	}

	stateWise := make([]stateStats, 0, len(byState))
	for _, stats := range byState {
		stateWise = append(stateWise, *stats)
	}
	sort.Slice(stateWise, func(i, j int) bool { return stateWise[i].State < stateWise[j].State })

	c.JSON(http.StatusOK, gin.H{
		"deviceStatus": []statusCount{
			{Name: "Online", Value: summary.Online},
			{Name: "Offline", Value: summary.Offline},
		},
		"stateWise": stateWise,
		"summary":   summary,
	})
}
