package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
	"veeniu/src/common"
	"veeniu/src/db"
	"veeniu/src/lib"
	"veeniu/src/middlewares"
	"veeniu/src/models"
	"veeniu/src/types"

	"github.com/gin-gonic/gin"
)

// proofURL resolves a short-lived download link for the stored payment proof.
// The link is cached for less than its signature lifetime so a cached hit can
// never outlive the signature.
func proofURL(txn *models.Transaction) *string {
	if txn.PaymentProof == nil {
		return nil
	}
	// keyed by artifact ref so a replaced proof never serves a stale link
	cacheKey := fmt.Sprintf("proof-url:%s", *txn.PaymentProof)
	rd := lib.GetRedisClient()
	if rd != nil {
		if cached, err := rd.Get(context.Background(), cacheKey).Result(); err == nil && cached != "" {
			return &cached
		}
	}
	url, err := lib.S3PresignURL(context.Background(), *txn.PaymentProof, 15*time.Minute)
	if err != nil {
		log.Printf("Error presigning payment proof for transaction %s: %s\n", txn.UUID.String(), err.Error())
		return nil
	}
	if rd != nil {
		rd.SetEx(context.Background(), cacheKey, url, 10*time.Minute)
	}
	return &url
}

func respondError(ctx *gin.Context, err error) {
	apiErr := types.AsApiError(err)
	if apiErr.Kind == types.ERR_INTERNAL {
		log.Printf("Internal error on %s: %s\n", ctx.FullPath(), apiErr.Message)
		ctx.JSON(apiErr.Status(), gin.H{"error": "Error while processing request", "kind": apiErr.Kind})
		return
	}
	ctx.JSON(apiErr.Status(), gin.H{"error": apiErr.Message, "kind": apiErr.Kind})
}

func transactionHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		POST("/transactions", middlewares.RequireRole(types.ROLE_CUSTOMER), func(ctx *gin.Context) {
			var body types.CreateTransactionRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			userId := ctx.GetUint("id")
			txn, err := common.CreateTransaction(&body, userId)
			if err != nil {
				respondError(ctx, err)
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{"data": gin.H{
				"uuid":            txn.UUID.String(),
				"total_amount":    txn.TotalAmount,
				"discount_amount": txn.DiscountAmount,
				"final_amount":    txn.FinalAmount,
				"status":          txn.Status,
				"expires_at":      txn.ExpiresAt,
			}})
		}).
		PATCH("/transactions/:uuid/payment-proof", middlewares.RequireRole(types.ROLE_CUSTOMER), func(ctx *gin.Context) {
			var params types.UUIDRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			fileHeader, err := ctx.FormFile("payment_proof")
			if err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": "payment_proof is required"})
				return
			}
			contentType := fileHeader.Header.Get("Content-Type")
			switch contentType {
			case "image/jpeg", "image/png", "image/heic":
			default:
				ctx.JSON(http.StatusBadRequest, gin.H{"error": "unsupported payment proof format"})
				return
			}
			file, err := fileHeader.Open()
			if err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			defer file.Close()
			content, err := io.ReadAll(file)
			if err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			userId := ctx.GetUint("id")
			txn, err := common.UploadPaymentProof(params.UUID, content, contentType, userId)
			if err != nil {
				respondError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": gin.H{
				"uuid":   txn.UUID.String(),
				"status": txn.Status,
			}})
		}).
		PATCH("/transactions/:uuid/accept", middlewares.RequireRole(types.ROLE_ORGANIZER), func(ctx *gin.Context) {
			var params types.UUIDRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			organizerId := ctx.GetUint("id")
			if err := common.AcceptTransaction(params.UUID, organizerId); err != nil {
				respondError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"message": "transaction accepted"})
		}).
		PATCH("/transactions/:uuid/reject", middlewares.RequireRole(types.ROLE_ORGANIZER), func(ctx *gin.Context) {
			var params types.UUIDRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			organizerId := ctx.GetUint("id")
			if err := common.RejectTransaction(params.UUID, organizerId); err != nil {
				respondError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"message": "transaction rejected and stock restored"})
		}).
		GET("/transactions/:uuid", func(ctx *gin.Context) {
			var params types.UUIDRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			txn, err := common.GetTransactionByUUID(params.UUID)
			if err != nil {
				respondError(ctx, err)
				return
			}
			userId := ctx.GetUint("id")
			if txn.UserID != userId && txn.Event.OrganizerID != userId {
				respondError(ctx, types.NewApiError(types.ERR_FORBIDDEN, "you are not allowed to view this transaction"))
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": txn, "proof_url": proofURL(txn)})
		}).
		GET("/transactions", middlewares.RequireRole(types.ROLE_CUSTOMER), func(ctx *gin.Context) {
			var query types.PaginationQuery
			if err := ctx.ShouldBindQuery(&query); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			userId := ctx.GetUint("id")
			gdb := db.GetDb()
			q := gdb.
				Model(&models.Transaction{}).
				Where(&models.Transaction{UserID: userId})
			if query.Search != "" {
				q = q.
					Joins("JOIN events ON events.id = transactions.event_id").
					Where("events.title ILIKE ?", "%"+query.Search+"%")
			}
			var total int64
			if err := q.Count(&total).Error; err != nil {
				respondError(ctx, err)
				return
			}
			var transactions []models.Transaction
			err := q.
				Preload("Event").
				Preload("Details").
				Preload("Details.Ticket").
				Order("transactions.created_at desc").
				Offset(query.Offset()).
				Limit(query.Limit).
				Find(&transactions).
				Error
			if err != nil {
				respondError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": transactions, "meta": types.NewPaginationMeta(&query, total)})
		}).
		GET("/organizer/transactions", middlewares.RequireRole(types.ROLE_ORGANIZER), func(ctx *gin.Context) {
			var query types.PaginationQuery
			if err := ctx.ShouldBindQuery(&query); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			organizerId := ctx.GetUint("id")
			gdb := db.GetDb()
			q := gdb.
				Model(&models.Transaction{}).
				Joins("JOIN events ON events.id = transactions.event_id").
				Where("events.organizer_id = ?", organizerId)
			if query.Search != "" {
				q = q.Where("events.title ILIKE ?", "%"+query.Search+"%")
			}
			var total int64
			if err := q.Count(&total).Error; err != nil {
				respondError(ctx, err)
				return
			}
			var transactions []models.Transaction
			err := q.
				Preload("Event").
				Preload("User").
				Preload("Details").
				Order("transactions.created_at desc").
				Offset(query.Offset()).
				Limit(query.Limit).
				Find(&transactions).
				Error
			if err != nil {
				respondError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": transactions, "meta": types.NewPaginationMeta(&query, total)})
		})
	return g
}
