package main

import (
	"errors"
	"net/http"
	"time"
	"veeniu/src/config"
	"veeniu/src/db"
	"veeniu/src/middlewares"
	"veeniu/src/models"
	"veeniu/src/types"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func voucherHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		GET("/vouchers", middlewares.RequireRole(types.ROLE_ORGANIZER), func(ctx *gin.Context) {
			var query types.PaginationQuery
			if err := ctx.ShouldBindQuery(&query); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			organizerId := ctx.GetUint("id")
			gdb := db.GetDb()
			q := gdb.
				Model(&models.Voucher{}).
				Joins("JOIN events ON events.id = vouchers.event_id").
				Where("events.organizer_id = ?", organizerId)
			if query.Search != "" {
				q = q.Where("vouchers.code ILIKE ?", "%"+query.Search+"%")
			}
			var total int64
			if err := q.Count(&total).Error; err != nil {
				respondError(ctx, err)
				return
			}
			var vouchers []models.Voucher
			err := q.
				Order("vouchers.created_at desc").
				Offset(query.Offset()).
				Limit(query.Limit).
				Find(&vouchers).
				Error
			if err != nil {
				respondError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": vouchers, "meta": types.NewPaginationMeta(&query, total)})
		}).
		GET("/vouchers/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			gdb := db.GetDb()
			var voucher models.Voucher
			err := gdb.Where(&models.Voucher{ID: params.ID}).First(&voucher).Error
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					respondError(ctx, types.NewApiError(types.ERR_NOT_FOUND, "voucher not found"))
					return
				}
				respondError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": voucher})
		}).
		POST("/vouchers", middlewares.RequireRole(types.ROLE_ORGANIZER), func(ctx *gin.Context) {
			var body types.CreateVoucherRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			organizerId := ctx.GetUint("id")
			if _, err := findOwnEvent(body.EventID, organizerId); err != nil {
				respondError(ctx, err)
				return
			}
			expiresAt, err := time.Parse(config.TIME_PARSE_FORMAT, body.ExpiresAt)
			if err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			voucher := models.Voucher{
				EventID:   body.EventID,
				Code:      body.Code,
				Value:     body.Value,
				ExpiresAt: expiresAt,
			}
			gdb := db.GetDb()
			if err := gdb.Create(&voucher).Error; err != nil {
				respondError(ctx, err)
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{"data": voucher})
		}).
		DELETE("/vouchers/:id", middlewares.RequireRole(types.ROLE_ORGANIZER), func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			gdb := db.GetDb()
			var voucher models.Voucher
			err := gdb.Where(&models.Voucher{ID: params.ID}).First(&voucher).Error
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					respondError(ctx, types.NewApiError(types.ERR_NOT_FOUND, "voucher not found"))
					return
				}
				respondError(ctx, err)
				return
			}
			organizerId := ctx.GetUint("id")
			if _, err := findOwnEvent(voucher.EventID, organizerId); err != nil {
				respondError(ctx, err)
				return
			}
			if err := gdb.Delete(&models.Voucher{}, voucher.ID).Error; err != nil {
				respondError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"message": "Voucher deleted successfully"})
		})
	return g
}
