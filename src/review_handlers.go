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

func publicReviewRoutes(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		GET("/events/:id/reviews", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			var query types.PaginationQuery
			if err := ctx.ShouldBindQuery(&query); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			gdb := db.GetDb()
			q := gdb.Model(&models.Review{}).Where(&models.Review{EventID: params.ID})
			var total int64
			if err := q.Count(&total).Error; err != nil {
				respondError(ctx, err)
				return
			}
			var reviews []models.Review
			err := q.
				Preload("User").
				Order("created_at desc").
				Offset(query.Offset()).
				Limit(query.Limit).
				Find(&reviews).
				Error
			if err != nil {
				respondError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": reviews, "meta": types.NewPaginationMeta(&query, total)})
		})
	return g
}

func reviewHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		POST("/reviews", middlewares.RequireRole(types.ROLE_CUSTOMER), func(ctx *gin.Context) {
			var body types.CreateReviewRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			userId := ctx.GetUint("id")
			gdb := db.GetDb()

			var paid int64
			err := gdb.
				Model(&models.Transaction{}).
				Where(&models.Transaction{UserID: userId, EventID: body.EventID, Status: types.TRANSACTION_DONE}).
				Count(&paid).
				Error
			if err != nil {
				respondError(ctx, err)
				return
			}
			if paid == 0 {
				respondError(ctx, types.NewApiError(types.ERR_FORBIDDEN, "you can only review events you have attended"))
				return
			}

			var existing models.Review
			err = gdb.Where(&models.Review{UserID: userId, EventID: body.EventID}).First(&existing).Error
			if err == nil {
				respondError(ctx, types.NewApiError(types.ERR_VALIDATION, "you have already reviewed this event"))
				return
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				respondError(ctx, err)
				return
			}

			review := models.Review{
				UserID:  userId,
				EventID: body.EventID,
				Rating:  body.Rating,
				Comment: body.Comment,
			}
			if err := gdb.Create(&review).Error; err != nil {
				respondError(ctx, err)
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{"data": review})
		})
	return g
}
