package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

func (ctl *Controller) HealthCheck(c *gin.Context) {
	response := gin.H{
		"status":    "ok",
		"message":   "Service is healthy",
		"timestamp": time.Now().Unix(),
		"db":        "ok",
	}
	if ctl.Hub != nil {
		response["websocket"] = gin.H{"enabled": true, "stats": ctl.Hub.Stats()}
	}

	sqlDB, err := ctl.DB.DB()
	if err != nil {
		response["db"] = "error: cannot get DB instance"
		response["status"] = "degraded"
		c.JSON(http.StatusInternalServerError, response)
		return
	}
	if err := sqlDB.PingContext(c.Request.Context()); err != nil {
		response["db"] = "error: cannot connect to DB"
		response["status"] = "degraded"
		c.JSON(http.StatusInternalServerError, response)
		return
	}
	c.JSON(http.StatusOK, response)
}

func Ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "pong"})
}
