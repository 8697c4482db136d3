package service

import (
	"context"
	"sort"
	"sync"

	"arzaquna-api/internal/domain"
)

// memStore 内存版 Store：Tx 串行执行，出错整体回滚
type memData struct {
	users      map[string]domain.User
	categories map[string]domain.Category
	apps       map[string]domain.VendorApplication
	vendors    map[string]domain.Vendor
	vendorCats []domain.VendorCategory
	events     []domain.ApplicationEvent
}

func (d memData) clone() memData {
	out := memData{
		users:      make(map[string]domain.User, len(d.users)),
		categories: make(map[string]domain.Category, len(d.categories)),
		apps:       make(map[string]domain.VendorApplication, len(d.apps)),
		vendors:    make(map[string]domain.Vendor, len(d.vendors)),
		vendorCats: append([]domain.VendorCategory(nil), d.vendorCats...),
		events:     append([]domain.ApplicationEvent(nil), d.events...),
	}
	for k, v := range d.users {
		out.users[k] = v
	}
	for k, v := range d.categories {
		out.categories[k] = v
	}
	for k, v := range d.apps {
		out.apps[k] = v
	}
	for k, v := range d.vendors {
		out.vendors[k] = v
	}
	return out
}

type memState struct {
	mu   sync.Mutex
	txMu sync.Mutex
	data memData

	// 注入点
	createVendorErr error
	afterFindApp    func(d *memData, id string)
}

type memStore struct{ st *memState }

func newMemStore() *memStore {
	return &memStore{st: &memState{data: memData{
		users:      map[string]domain.User{},
		categories: map[string]domain.Category{},
		apps:       map[string]domain.VendorApplication{},
		vendors:    map[string]domain.Vendor{},
	}}}
}

func (m *memStore) addUser(u domain.User) {
	m.st.mu.Lock()
	defer m.st.mu.Unlock()
	if u.Role == "" {
		u.Role = domain.RoleUser
	}
	u.IsActive = true
	m.st.data.users[u.ID] = u
}

func (m *memStore) addCategory(id string, active bool) {
	m.st.mu.Lock()
	defer m.st.mu.Unlock()
	m.st.data.categories[id] = domain.Category{Base: domain.Base{ID: id}, NameEn: id, IsActive: active}
}

func (m *memStore) snapshot() memData {
	m.st.mu.Lock()
	defer m.st.mu.Unlock()
	return m.st.data.clone()
}

func (m *memStore) Tx(ctx context.Context, fn func(Store) error) error {
	m.st.txMu.Lock()
	defer m.st.txMu.Unlock()
	before := m.snapshot()
	if err := fn(m); err != nil {
		m.st.mu.Lock()
		m.st.data = before
		m.st.mu.Unlock()
		return err
	}
	return nil
}

func (m *memStore) FindUserByID(_ context.Context, id string) (*domain.User, error) {
	m.st.mu.Lock()
	defer m.st.mu.Unlock()
	u, ok := m.st.data.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (m *memStore) LockUser(ctx context.Context, id string) (*domain.User, error) {
	return m.FindUserByID(ctx, id)
}

func (m *memStore) FindUsersByEmailOrPhone(_ context.Context, email, phone string) ([]domain.User, error) {
	m.st.mu.Lock()
	defer m.st.mu.Unlock()
	var out []domain.User
	for _, u := range m.st.data.users {
		if (email != "" && u.Email == email) || (phone != "" && u.Phone == phone) {
			out = append(out, u)
		}
	}
	return out, nil
}

func (m *memStore) CreateUser(_ context.Context, u *domain.User) error {
	m.st.mu.Lock()
	defer m.st.mu.Unlock()
	m.st.data.users[u.ID] = *u
	return nil
}

func (m *memStore) UpdateUserProfile(_ context.Context, u *domain.User) error {
	m.st.mu.Lock()
	defer m.st.mu.Unlock()
	cur, ok := m.st.data.users[u.ID]
	if !ok {
		return domain.ErrUserNotFound
	}
	cur.FullName, cur.Email, cur.Phone, cur.PasswordHash = u.FullName, u.Email, u.Phone, u.PasswordHash
	m.st.data.users[u.ID] = cur
	return nil
}

func (m *memStore) UpdateUserRole(_ context.Context, id string, role domain.Role) error {
	m.st.mu.Lock()
	defer m.st.mu.Unlock()
	u, ok := m.st.data.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.Role = role
	m.st.data.users[id] = u
	return nil
}

func (m *memStore) FindCategoriesByIDs(_ context.Context, ids []string) ([]domain.Category, error) {
	m.st.mu.Lock()
	defer m.st.mu.Unlock()
	var out []domain.Category
	for _, id := range ids {
		if c, ok := m.st.data.categories[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memStore) HasOpenApplication(_ context.Context, userID string) (bool, error) {
	m.st.mu.Lock()
	defer m.st.mu.Unlock()
	for _, a := range m.st.data.apps {
		if a.UserID == userID && (a.Status == domain.ApplicationPending || a.Status == domain.ApplicationApproved) {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) CreateApplication(_ context.Context, app *domain.VendorApplication) error {
	m.st.mu.Lock()
	defer m.st.mu.Unlock()
	m.st.data.apps[app.ID] = *app
	return nil
}

func (m *memStore) FindApplication(_ context.Context, id string) (*domain.VendorApplication, error) {
	m.st.mu.Lock()
	defer m.st.mu.Unlock()
	a, ok := m.st.data.apps[id]
	if !ok {
		return nil, nil
	}
	if m.st.afterFindApp != nil {
		m.st.afterFindApp(&m.st.data, id)
	}
	return &a, nil
}

func (m *memStore) ListApplications(_ context.Context, f domain.ApplicationFilter) ([]domain.VendorApplication, int64, error) {
	m.st.mu.Lock()
	defer m.st.mu.Unlock()
	var out []domain.VendorApplication
	for _, a := range m.st.data.apps {
		if f.Status != "" && a.Status != f.Status {
			continue
		}
		if f.UserID != "" && a.UserID != f.UserID {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	total := int64(len(out))
	if f.Limit > 0 {
		if f.Offset >= len(out) {
			return nil, total, nil
		}
		end := f.Offset + f.Limit
		if end > len(out) {
			end = len(out)
		}
		out = out[f.Offset:end]
	}
	return out, total, nil
}

func (m *memStore) TransitionApplication(_ context.Context, app *domain.VendorApplication, d domain.Decision) error {
	m.st.mu.Lock()
	defer m.st.mu.Unlock()
	cur, ok := m.st.data.apps[app.ID]
	if !ok || cur.Status != domain.ApplicationPending || cur.Version != app.Version {
		return domain.ErrAlreadyReviewed
	}
	d.Apply(&cur)
	m.st.data.apps[app.ID] = cur
	return nil
}

func (m *memStore) AppendEvent(_ context.Context, ev *domain.ApplicationEvent) error {
	m.st.mu.Lock()
	defer m.st.mu.Unlock()
	m.st.data.events = append(m.st.data.events, *ev)
	return nil
}

func (m *memStore) FindVendorByUserID(_ context.Context, userID string) (*domain.Vendor, error) {
	m.st.mu.Lock()
	defer m.st.mu.Unlock()
	for _, v := range m.st.data.vendors {
		if v.UserID == userID {
			return &v, nil
		}
	}
	return nil, nil
}

func (m *memStore) CreateVendor(_ context.Context, v *domain.Vendor, categoryIDs []string) error {
	m.st.mu.Lock()
	defer m.st.mu.Unlock()
	m.st.data.vendors[v.ID] = *v
	// 与真实实现一致：先写 vendor，再写类目；注入错误用于验证回滚
	if m.st.createVendorErr != nil {
		return m.st.createVendorErr
	}
	for _, cid := range categoryIDs {
		m.st.data.vendorCats = append(m.st.data.vendorCats, domain.VendorCategory{ID: v.ID + ":" + cid, VendorID: v.ID, CategoryID: cid})
	}
	return nil
}

func (d memData) vendorsOf(userID string) []domain.Vendor {
	var out []domain.Vendor
	for _, v := range d.vendors {
		if v.UserID == userID {
			out = append(out, v)
		}
	}
	return out
}

func (d memData) categoryIDsOf(vendorID string) []string {
	var out []string
	for _, vc := range d.vendorCats {
		if vc.VendorID == vendorID {
			out = append(out, vc.CategoryID)
		}
	}
	sort.Strings(out)
	return out
}
