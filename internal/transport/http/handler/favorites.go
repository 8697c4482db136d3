package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"arzaquna-api/internal/domain"
	"arzaquna-api/internal/transport/http/ez"
)

// FavoritesModule 收藏走 ez.RegisterOwned（按 user_id 隔离）
type FavoritesModule struct{ d Deps }

func NewFavoritesModule(d Deps) *FavoritesModule { return &FavoritesModule{d: d} }

func (m *FavoritesModule) MountAPI(g *gin.RouterGroup) {
	e := ez.New(g)

	type checkOut struct {
		IsFavorite bool   `json:"isFavorite"`
		FavoriteID string `json:"favoriteId,omitempty"`
	}
	ez.RegisterAction(e, m.d.DB, ez.Action[struct{}, checkOut]{
		Method: http.MethodGet,
		Path:   "/favorites/check/:productId",
		Auth:   true,
		Handler: func(c *gin.Context, tx *gorm.DB, _ *struct{}) (checkOut, error) {
			var fs []domain.Favorite
			if err := tx.Where("user_id = ? AND product_id = ?", ez.UserID(c), c.Param("productId")).
				Limit(1).Find(&fs).Error; err != nil {
				return checkOut{}, err
			}
			if len(fs) == 0 {
				return checkOut{}, nil
			}
			return checkOut{IsFavorite: true, FavoriteID: fs[0].ID}, nil
		},
	})

	type favoriteIn struct {
		ProductID string `json:"productId" binding:"required"`
	}
	ez.RegisterOwned(e, m.d.DB, ez.Owned[domain.Favorite, favoriteIn]{
		Path:     "/favorites",
		ListKey:  "favorites",
		NotFound: "favorite not found",
		Build: func(c *gin.Context, tx *gorm.DB, uid string, in *favoriteIn) (*domain.Favorite, error) {
			var n int64
			if err := tx.Model(&domain.Product{}).Where("id = ? AND is_active = ?", in.ProductID, true).Count(&n).Error; err != nil {
				return nil, err
			}
			if n == 0 {
				return nil, errProductNotFound
			}
			return &domain.Favorite{UserID: uid, ProductID: in.ProductID}, nil
		},
		Scope: func(q *gorm.DB) *gorm.DB {
			return q.Preload("Product.Vendor").Preload("Product.Category")
		},
	})
}
