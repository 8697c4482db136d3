package ez

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Owned “我的资源”：所有读写都带 owner 列条件，别人的数据一律当作不存在
// I 是创建入参，T 是落库模型；Build 把入参变成模型，客户端不能指定 id/owner
type Owned[T any, I any] struct {
	Path     string
	OwnerCol string // 默认 user_id
	ListKey  string // 默认 items
	OrderBy  string // 默认 created_at DESC
	NotFound string

	Build func(c *gin.Context, tx *gorm.DB, uid string, in *I) (*T, error) // nil 则不注册 POST
	Scope func(q *gorm.DB) *gorm.DB                                        // 列表/详情预加载
	Get   bool                                                             // 是否注册 GET /:id
}

type ownedList struct {
	Page
}

func (o *Owned[T, I]) defaults() {
	if o.OwnerCol == "" {
		o.OwnerCol = "user_id"
	}
	if o.ListKey == "" {
		o.ListKey = "items"
	}
	if o.OrderBy == "" {
		o.OrderBy = "created_at DESC"
	}
	if o.NotFound == "" {
		o.NotFound = "not found"
	}
	if o.Scope == nil {
		o.Scope = func(q *gorm.DB) *gorm.DB { return q }
	}
}

func (o *Owned[T, I]) mine(tx *gorm.DB, uid string) *gorm.DB {
	return tx.Model(new(T)).Where(o.OwnerCol+" = ?", uid)
}

// RegisterOwned 注册 GET 列表、DELETE /:id，按配置追加 POST 与 GET /:id
func RegisterOwned[T any, I any](e EZ, db *gorm.DB, o Owned[T, I]) {
	o.defaults()

	if o.Build != nil {
		RegisterAction(e, db, Action[I, *T]{
			Method: http.MethodPost,
			Path:   o.Path,
			Binder: BindJSON,
			Auth:   true,
			UseTx:  true,
			Status: http.StatusCreated,
			Handler: func(c *gin.Context, tx *gorm.DB, in *I) (*T, error) {
				m, err := o.Build(c, tx, UserID(c), in)
				if err != nil {
					return nil, err
				}
				if err := tx.Create(m).Error; err != nil {
					return nil, err
				}
				return m, nil
			},
		})
	}

	RegisterAction(e, db, Action[ownedList, gin.H]{
		Method: http.MethodGet,
		Path:   o.Path,
		Binder: BindQuery,
		Auth:   true,
		Handler: func(c *gin.Context, tx *gorm.DB, in *ownedList) (gin.H, error) {
			pg := in.Page.Norm(20)
			var total int64
			if err := o.mine(tx, UserID(c)).Count(&total).Error; err != nil {
				return nil, err
			}
			items := make([]T, 0)
			if err := o.Scope(o.mine(tx, UserID(c))).Order(o.OrderBy).
				Limit(pg.Limit).Offset(pg.Offset()).Find(&items).Error; err != nil {
				return nil, err
			}
			return Paged(o.ListKey, items, pg.Of(total)), nil
		},
	})

	if o.Get {
		RegisterAction(e, db, Action[struct{}, *T]{
			Method: http.MethodGet,
			Path:   o.Path + "/:id",
			Auth:   true,
			Handler: func(c *gin.Context, tx *gorm.DB, _ *struct{}) (*T, error) {
				m := new(T)
				err := o.Scope(o.mine(tx, UserID(c))).Where("id = ?", c.Param("id")).First(m).Error
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return nil, NotFound(o.NotFound)
				}
				if err != nil {
					return nil, err
				}
				return m, nil
			},
		})
	}

	RegisterAction(e, db, Action[struct{}, gin.H]{
		Method: http.MethodDelete,
		Path:   o.Path + "/:id",
		Auth:   true,
		Handler: func(c *gin.Context, tx *gorm.DB, _ *struct{}) (gin.H, error) {
			id := c.Param("id")
			res := tx.Where(o.OwnerCol+" = ? AND id = ?", UserID(c), id).Delete(new(T))
			if res.Error != nil {
				return nil, res.Error
			}
			if res.RowsAffected == 0 {
				return nil, NotFound(o.NotFound)
			}
			return gin.H{"id": id}, nil
		},
	})
}
