package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
	"veeniu/src/config"
	"veeniu/src/db"
	"veeniu/src/lib"
	"veeniu/src/middlewares"
	"veeniu/src/models"
	"veeniu/src/types"

	"github.com/gin-gonic/gin"
	"github.com/gosimple/slug"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type eventQueryFilters struct {
	types.PaginationQuery
	Category string `form:"category"`
	Location string `form:"location"`
}

func publicEventRoutes(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		GET("/events", func(ctx *gin.Context) {
			var query eventQueryFilters
			if err := ctx.ShouldBindQuery(&query); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}

			cacheKey := fmt.Sprintf("events:public:p%d:l%d:s%s:c%s:lo%s", query.Page, query.Limit, query.Search, query.Category, query.Location)
			rd := lib.GetRedisClient()
			if rd != nil {
				cached, err := rd.Get(context.Background(), cacheKey).Result()
				if err == nil && cached != "" {
					ctx.Data(http.StatusOK, "application/json", []byte(cached))
					return
				}
				if err != nil && !errors.Is(err, redis.Nil) {
					log.Printf("Error reading events from cache: %s\n", err.Error())
				}
			}

			gdb := db.GetDb()
			q := gdb.Model(&models.Event{})
			if query.Search != "" {
				q = q.Where("title ILIKE ?", "%"+query.Search+"%")
			}
			if query.Category != "" {
				q = q.Where(&models.Event{Category: query.Category})
			}
			if query.Location != "" {
				q = q.Where(&models.Event{Location: query.Location})
			}
			var total int64
			if err := q.Count(&total).Error; err != nil {
				respondError(ctx, err)
				return
			}
			var events []models.Event
			err := q.
				Order("starts_at asc").
				Offset(query.Offset()).
				Limit(query.Limit).
				Find(&events).
				Error
			if err != nil {
				respondError(ctx, err)
				return
			}

			payload := gin.H{"data": events, "meta": types.NewPaginationMeta(&query.PaginationQuery, total)}
			if rd != nil {
				if raw, err := json.Marshal(payload); err == nil {
					rd.SetEx(context.Background(), cacheKey, string(raw), 60*time.Second)
				}
			}
			ctx.JSON(http.StatusOK, payload)
		}).
		GET("/events/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			gdb := db.GetDb()
			var event models.Event
			err := gdb.
				Where(&models.Event{ID: params.ID}).
				Preload("Tickets").
				Preload("Organizer").
				First(&event).
				Error
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					respondError(ctx, types.NewApiError(types.ERR_NOT_FOUND, "event not found"))
					return
				}
				respondError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": event})
		})
	return g
}

func eventHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		GET("/org/events", middlewares.RequireRole(types.ROLE_ORGANIZER), func(ctx *gin.Context) {
			var query eventQueryFilters
			if err := ctx.ShouldBindQuery(&query); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			organizerId := ctx.GetUint("id")
			gdb := db.GetDb()
			q := gdb.Model(&models.Event{}).Where(&models.Event{OrganizerID: organizerId})
			if query.Search != "" {
				q = q.Where("title ILIKE ?", "%"+query.Search+"%")
			}
			var total int64
			if err := q.Count(&total).Error; err != nil {
				respondError(ctx, err)
				return
			}
			var events []models.Event
			err := q.
				Order("created_at desc").
				Offset(query.Offset()).
				Limit(query.Limit).
				Find(&events).
				Error
			if err != nil {
				respondError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": events, "meta": types.NewPaginationMeta(&query.PaginationQuery, total)})
		}).
		POST("/events", middlewares.RequireRole(types.ROLE_ORGANIZER), func(ctx *gin.Context) {
			var body types.CreateEventRequestBody
			if err := ctx.ShouldBind(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			startsAt, err := time.Parse(config.TIME_PARSE_FORMAT, body.StartsAt)
			if err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			endsAt, err := time.Parse(config.TIME_PARSE_FORMAT, body.EndsAt)
			if err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}

			var imageURL *string
			if fileHeader, err := ctx.FormFile("image"); err == nil {
				file, err := fileHeader.Open()
				if err != nil {
					ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
					return
				}
				content, err := io.ReadAll(file)
				file.Close()
				if err != nil {
					ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
					return
				}
				key := fmt.Sprintf("events/%s-%d", slug.Make(body.Title), time.Now().UnixNano())
				ref, err := lib.GetArtifactStore().Store(context.Background(), key, content, fileHeader.Header.Get("Content-Type"))
				if err != nil {
					respondError(ctx, types.NewApiError(types.ERR_INTERNAL, "could not store event image"))
					return
				}
				imageURL = &ref
			}

			organizerId := ctx.GetUint("id")
			event := models.Event{
				OrganizerID: organizerId,
				Title:       body.Title,
				Slug:        slug.Make(body.Title),
				Description: body.Description,
				Category:    body.Category,
				Location:    body.Location,
				ImageURL:    imageURL,
				StartsAt:    startsAt,
				EndsAt:      endsAt,
			}
			gdb := db.GetDb()
			if err := gdb.Create(&event).Error; err != nil {
				respondError(ctx, err)
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{"data": event})
		}).
		PATCH("/events/:id", middlewares.RequireRole(types.ROLE_ORGANIZER), func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			var body types.EditEventRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			organizerId := ctx.GetUint("id")
			event, err := findOwnEvent(params.ID, organizerId)
			if err != nil {
				respondError(ctx, err)
				return
			}

			updates := map[string]any{}
			if body.Title != nil {
				updates["title"] = *body.Title
				updates["slug"] = slug.Make(*body.Title)
			}
			if body.Description != nil {
				updates["description"] = *body.Description
			}
			if body.Category != nil {
				updates["category"] = *body.Category
			}
			if body.Location != nil {
				updates["location"] = *body.Location
			}
			if body.StartsAt != nil {
				startsAt, err := time.Parse(config.TIME_PARSE_FORMAT, *body.StartsAt)
				if err != nil {
					ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
					return
				}
				updates["starts_at"] = startsAt
			}
			if body.EndsAt != nil {
				endsAt, err := time.Parse(config.TIME_PARSE_FORMAT, *body.EndsAt)
				if err != nil {
					ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
					return
				}
				updates["ends_at"] = endsAt
			}
			gdb := db.GetDb()
			if err := gdb.Model(&models.Event{}).Where("id = ?", event.ID).Updates(updates).Error; err != nil {
				respondError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"message": "Event updated successfully"})
		}).
		DELETE("/events/:id", middlewares.RequireRole(types.ROLE_ORGANIZER), func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			organizerId := ctx.GetUint("id")
			event, err := findOwnEvent(params.ID, organizerId)
			if err != nil {
				respondError(ctx, err)
				return
			}
			gdb := db.GetDb()
			if err := gdb.Delete(&models.Event{}, event.ID).Error; err != nil {
				respondError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"message": "Event deleted successfully"})
		})
	return g
}

// findOwnEvent resolves an event and checks organizer ownership.
func findOwnEvent(eventID uint, organizerID uint) (*models.Event, error) {
	gdb := db.GetDb()
	var event models.Event
	err := gdb.Where(&models.Event{ID: eventID}).First(&event).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, types.NewApiError(types.ERR_NOT_FOUND, "event not found")
		}
		return nil, err
	}
	if event.OrganizerID != organizerID {
		return nil, types.NewApiError(types.ERR_FORBIDDEN, "event does not belong to you")
	}
	return &event, nil
}
