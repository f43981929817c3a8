package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
	"veeniu/src/common"
	"veeniu/src/db"
	"veeniu/src/lib"
	"veeniu/src/models"
	"veeniu/src/types"
	"veeniu/src/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func userHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		GET("/users/me", func(ctx *gin.Context) {
			userId := ctx.GetUint("id")
			gdb := db.GetDb()
			var user models.User
			err := gdb.Where(&models.User{ID: userId}).First(&user).Error
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					respondError(ctx, types.NewApiError(types.ERR_NOT_FOUND, "user not found"))
					return
				}
				respondError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": user})
		}).
		GET("/users/me/points", func(ctx *gin.Context) {
			userId := ctx.GetUint("id")
			balance, err := common.PointsBalance(db.GetDb(), userId)
			if err != nil {
				respondError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": gin.H{"points": balance}})
		}).
		GET("/users/me/rewards", func(ctx *gin.Context) {
			var query types.PaginationQuery
			if err := ctx.ShouldBindQuery(&query); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			userId := ctx.GetUint("id")
			gdb := db.GetDb()
			q := gdb.Model(&models.Reward{}).Where(&models.Reward{UserID: userId})
			var total int64
			if err := q.Count(&total).Error; err != nil {
				respondError(ctx, err)
				return
			}
			var rewards []models.Reward
			err := q.
				Order("created_at desc").
				Offset(query.Offset()).
				Limit(query.Limit).
				Find(&rewards).
				Error
			if err != nil {
				respondError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": rewards, "meta": types.NewPaginationMeta(&query, total)})
		}).
		PATCH("/users/me", func(ctx *gin.Context) {
			var body types.UpdateUserRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			updates := map[string]any{}
			if body.Name != nil {
				updates["name"] = *body.Name
			}
			if body.Password != nil {
				hashed, err := utils.HashPassword(*body.Password)
				if err != nil {
					respondError(ctx, err)
					return
				}
				updates["password"] = hashed
			}
			if len(updates) == 0 {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": "nothing to update"})
				return
			}
			userId := ctx.GetUint("id")
			gdb := db.GetDb()
			if err := gdb.Model(&models.User{}).Where("id = ?", userId).Updates(updates).Error; err != nil {
				respondError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"message": "Profile updated successfully"})
		}).
		PATCH("/users/me/profile-picture", func(ctx *gin.Context) {
			fileHeader, err := ctx.FormFile("profile_picture")
			if err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": "profile_picture is required"})
				return
			}
			contentType := fileHeader.Header.Get("Content-Type")
			switch contentType {
			case "image/jpeg", "image/png":
			default:
				ctx.JSON(http.StatusBadRequest, gin.H{"error": "unsupported image format"})
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
			gdb := db.GetDb()
			var user models.User
			if err := gdb.Where(&models.User{ID: userId}).First(&user).Error; err != nil {
				respondError(ctx, err)
				return
			}

			store := lib.GetArtifactStore()
			key := fmt.Sprintf("avatars/%d-%d", userId, time.Now().UnixNano())
			ref, err := store.Store(context.Background(), key, content, contentType)
			if err != nil {
				respondError(ctx, types.NewApiError(types.ERR_INTERNAL, "could not store profile picture"))
				return
			}
			old := user.ProfilePicture
			if err := gdb.Model(&models.User{}).Where("id = ?", userId).Update("profile_picture", ref).Error; err != nil {
				respondError(ctx, err)
				return
			}
			if old != nil {
				store.Remove(context.Background(), *old)
			}
			ctx.JSON(http.StatusOK, gin.H{"data": gin.H{"profile_picture": ref}})
		})
	return g
}
