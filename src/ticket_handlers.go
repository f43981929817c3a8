package main

import (
	"errors"
	"net/http"
	"veeniu/src/db"
	"veeniu/src/middlewares"
	"veeniu/src/models"
	"veeniu/src/types"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func ticketHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		GET("/tickets/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			gdb := db.GetDb()
			var ticket models.Ticket
			err := gdb.
				Where(&models.Ticket{ID: params.ID}).
				Preload("Event").
				First(&ticket).
				Error
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					respondError(ctx, types.NewApiError(types.ERR_NOT_FOUND, "ticket not found"))
					return
				}
				respondError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": ticket})
		}).
		POST("/tickets", middlewares.RequireRole(types.ROLE_ORGANIZER), func(ctx *gin.Context) {
			var body types.CreateTicketRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			organizerId := ctx.GetUint("id")
			if _, err := findOwnEvent(body.EventID, organizerId); err != nil {
				respondError(ctx, err)
				return
			}
			ticket := models.Ticket{
				EventID: body.EventID,
				Name:    body.Name,
				Price:   body.Price,
				Stock:   body.Stock,
			}
			gdb := db.GetDb()
			if err := gdb.Create(&ticket).Error; err != nil {
				respondError(ctx, err)
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{"data": ticket})
		}).
		DELETE("/tickets/:id", middlewares.RequireRole(types.ROLE_ORGANIZER), func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			gdb := db.GetDb()
			var ticket models.Ticket
			err := gdb.Where(&models.Ticket{ID: params.ID}).First(&ticket).Error
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					respondError(ctx, types.NewApiError(types.ERR_NOT_FOUND, "ticket not found"))
					return
				}
				respondError(ctx, err)
				return
			}
			organizerId := ctx.GetUint("id")
			if _, err := findOwnEvent(ticket.EventID, organizerId); err != nil {
				respondError(ctx, err)
				return
			}
			if err := gdb.Delete(&models.Ticket{}, ticket.ID).Error; err != nil {
				respondError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"message": "Ticket deleted successfully"})
		})
	return g
}
