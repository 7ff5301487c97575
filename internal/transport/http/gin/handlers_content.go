package httpgin

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kirinyoku/atelier/internal/service"
)

// @Summary  List approved reviews
// @Tags     reviews
// @Success  200  {array}  domain.Review
// @Router   /api/reviews [get]
func handleListApprovedReviews(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := svcs.Reviews.ListApproved(c.Request.Context())
		if err != nil {
			respondErr(c, err)
			return
		}
		writeJSONWithCache(c, list, "public, max-age=60")
	}
}

// @Summary  Submit review
// @Description The review is shown once an admin approves it.
// @Tags     reviews
// @Param    req  body  SubmitReviewRequest  true  "payload"
// @Success  201  {object}  domain.Review
// @Failure  400  {object}  ErrorResponse
// @Failure  429  {object}  ErrorResponse
// @Router   /api/reviews [post]
func handleSubmitReview(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req SubmitReviewRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		res, err := svcs.Reviews.Submit(c.Request.Context(), req.Name, req.Rating, req.Comment)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, res.Review)
	}
}

// @Summary  List all reviews
// @Tags     admin
// @Security BasicAuth
// @Success  200  {array}  domain.Review
// @Router   /api/admin/reviews [get]
func handleListAllReviews(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := svcs.Reviews.ListAll(c.Request.Context())
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, list)
	}
}

// @Summary  Approve or hide review
// @Tags     admin
// @Security BasicAuth
// @Param    id   path  string                true  "Review ID"
// @Param    req  body  ApproveReviewRequest  true  "payload"
// @Success  200  {object}  domain.Review
// @Failure  404  {object}  ErrorResponse
// @Router   /api/admin/reviews/{id} [patch]
func handleApproveReview(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ApproveReviewRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		r, err := svcs.Reviews.SetApproved(c.Request.Context(), c.Param("id"), req.Approved)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, r)
	}
}

// @Summary  Delete review
// @Tags     admin
// @Security BasicAuth
// @Param    id  path  string  true  "Review ID"
// @Success  204
// @Failure  404  {object}  ErrorResponse
// @Router   /api/admin/reviews/{id} [delete]
func handleDeleteReview(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := svcs.Reviews.Delete(c.Request.Context(), c.Param("id")); err != nil {
			respondErr(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// @Summary  List gallery categories
// @Tags     gallery
// @Success  200  {array}  domain.GalleryCategory
// @Router   /api/gallery/categories [get]
func handleListCategories(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := svcs.Gallery.ListCategories(c.Request.Context())
		if err != nil {
			respondErr(c, err)
			return
		}
		writeJSONWithCache(c, list, "public, max-age=300")
	}
}

// @Summary  List image metadata
// @Tags     gallery
// @Param    category  query  string  false  "only images tagged with this category id"
// @Success  200  {array}  domain.ImageMetadata
// @Router   /api/gallery/images [get]
func handleListImages(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := svcs.Gallery.ListImages(c.Request.Context(), c.Query("category"))
		if err != nil {
			respondErr(c, err)
			return
		}
		writeJSONWithCache(c, list, "public, max-age=60")
	}
}

// @Summary  Create gallery category
// @Tags     admin
// @Security BasicAuth
// @Param    req  body  CreateCategoryRequest  true  "payload"
// @Success  201  {object}  domain.GalleryCategory
// @Failure  409  {object}  ErrorResponse  "slug taken"
// @Router   /api/admin/gallery/categories [post]
func handleCreateCategory(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateCategoryRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		cat, err := svcs.Gallery.CreateCategory(c.Request.Context(), req.Name)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, cat)
	}
}

// @Summary  Delete gallery category
// @Description Also removes the category from every image.
// @Tags     admin
// @Security BasicAuth
// @Param    id  path  string  true  "Category ID"
// @Success  204
// @Failure  404  {object}  ErrorResponse
// @Router   /api/admin/gallery/categories/{id} [delete]
func handleDeleteCategory(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := svcs.Gallery.DeleteCategory(c.Request.Context(), c.Param("id")); err != nil {
			respondErr(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// @Summary  Set image categories
// @Tags     admin
// @Security BasicAuth
// @Param    req  body  SetImageCategoriesRequest  true  "payload"
// @Success  200  {object}  domain.ImageMetadata
// @Failure  400  {object}  ErrorResponse
// @Router   /api/admin/gallery/images [put]
func handleSetImageCategories(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req SetImageCategoriesRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		meta, err := svcs.Gallery.SetImageCategories(c.Request.Context(), req.Filename, req.Categories)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, meta)
	}
}
