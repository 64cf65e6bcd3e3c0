package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	defaultFeedLimit = 20
	maxFeedLimit     = 100
)

func queryInt(c *gin.Context, key string, def int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return def
	}
	return v
}

// Feed lists published why-listen entries, newest first.
func (ctl *Controller) Feed(c *gin.Context) {
	limit := queryInt(c, "limit", defaultFeedLimit)
	if limit <= 0 {
		limit = defaultFeedLimit
	}
	if limit > maxFeedLimit {
		limit = maxFeedLimit
	}
	offset := queryInt(c, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	entries, err := ctl.Repo.ListFeed(c.Request.Context(), limit, offset)
	if err != nil {
		ctl.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries, "limit": limit, "offset": offset})
}

// Map returns listeners as nodes and shared podcasts as edges.
func (ctl *Controller) Map(c *gin.Context) {
	graph, err := ctl.Repo.FeedGraph(c.Request.Context())
	if err != nil {
		ctl.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, graph)
}
