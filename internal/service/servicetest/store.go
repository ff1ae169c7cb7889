// Package servicetest provides an in-memory store satisfying every service store interface.
package servicetest

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"ecommerce-backend/internal/entity"

	"github.com/shopspring/decimal"
)

type cartKey struct {
	userID    int64
	productID int64
}

type cartRow struct {
	id       int64
	quantity int
	addedAt  time.Time
}

type orderItemRow struct {
	productID int64
	quantity  int
	unitPrice decimal.Decimal
}

type orderRow struct {
	order entity.Order
	items []orderItemRow
}

// Store keeps users, products, carts and orders in memory.
// PlaceOrder applies a draft all-or-nothing, like the SQL repository.
type Store struct {
	mu         sync.Mutex
	now        time.Time
	nextID     int64
	users      map[int64]*entity.User
	products   map[int64]*entity.Product
	categories []entity.Category
	cart       map[cartKey]*cartRow
	orders     map[int64]*orderRow

	// Err, when set, is returned by every store call.
	Err error
	// PlaceOrderErr, when set, is returned by PlaceOrder before anything is written.
	PlaceOrderErr error
	// ClearCartErr, when set, is returned by ClearCart.
	ClearCartErr error
	// GetOrderErr, when set, is returned by GetOrderByID.
	GetOrderErr error
	// BeforePlaceOrder runs inside PlaceOrder before the draft is checked.
	BeforePlaceOrder func(s *Store)
}

func NewStore() *Store {
	return &Store{
		now:      time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
		users:    map[int64]*entity.User{},
		products: map[int64]*entity.Product{},
		cart:     map[cartKey]*cartRow{},
		orders:   map[int64]*orderRow{},
	}
}

func (s *Store) tick() time.Time {
	s.now = s.now.Add(time.Second)
	return s.now
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

// AddProduct seeds an active product and returns its id.
func (s *Store) AddProduct(name string, price string, stock int) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.tick()
	id := s.id()
	s.products[id] = &entity.Product{
		ID:        id,
		Name:      name,
		Price:     decimal.RequireFromString(price),
		Stock:     stock,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return id
}

// AddCategory seeds a category and returns its id.
func (s *Store) AddCategory(name string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.id()
	s.categories = append(s.categories, entity.Category{ID: id, Name: name})
	return id
}

// AddUser seeds a user with an already hashed password.
func (s *Store) AddUser(name, email, passwordHash string, role entity.Role) int64 {
	id, _ := s.CreateUser(context.Background(), &entity.User{Name: name, Email: email, Password: passwordHash, Role: role})
	return id
}

// Product returns a copy of a product regardless of its active flag.
func (s *Store) Product(id int64) entity.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.productView(s.products[id])
}

// SetOrderStatus forces an order's status, bypassing every rule.
func (s *Store) SetOrderStatus(id int64, status entity.OrderStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[id].order.Status = status
}

// OrderCount returns how many orders exist.
func (s *Store) OrderCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.orders)
}

// SetStock overwrites a product's stock directly.
func (s *Store) SetStock(id int64, stock int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[id].Stock = stock
}

// SetPrice overwrites a product's price directly.
func (s *Store) SetPrice(id int64, price string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[id].Price = decimal.RequireFromString(price)
}

func (s *Store) productView(p *entity.Product) entity.Product {
	view := *p
	view.InStock = p.Stock > 0
	view.CategoryName = nil
	if p.CategoryID != nil {
		for _, c := range s.categories {
			if c.ID == *p.CategoryID {
				name := c.Name
				view.CategoryName = &name
			}
		}
	}
	return view
}

func (s *Store) GetUserByID(_ context.Context, id int64) (*entity.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	user, ok := s.users[id]
	if !ok {
		return nil, &entity.NotFoundError{Entity: "user", ID: id}
	}
	copied := *user
	return &copied, nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (*entity.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	for _, user := range s.users {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, &entity.NotFoundError{Entity: "user"}
}

func (s *Store) CreateUser(_ context.Context, user *entity.User) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return 0, s.Err
	}
	for _, existing := range s.users {
		if existing.Email == user.Email {
			return 0, &entity.ValidationError{Field: "email", Message: "Email is already registered"}
		}
	}
	now := s.tick()
	stored := *user
	stored.ID = s.id()
	if stored.Role == "" {
		stored.Role = entity.RoleCustomer
	}
	stored.CreatedAt, stored.UpdatedAt = now, now
	s.users[stored.ID] = &stored
	return stored.ID, nil
}

func (s *Store) UpdateName(_ context.Context, id int64, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if user, ok := s.users[id]; ok {
		user.Name = name
	}
	return nil
}

func (s *Store) UpdatePassword(_ context.Context, id int64, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if user, ok := s.users[id]; ok {
		user.Password = passwordHash
	}
	return nil
}

func (s *Store) GetProductByID(_ context.Context, id int64) (*entity.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	p, ok := s.products[id]
	if !ok || !p.IsActive {
		return nil, &entity.NotFoundError{Entity: "product", ID: id}
	}
	view := s.productView(p)
	return &view, nil
}

func (s *Store) GetAnyProductByID(_ context.Context, id int64) (*entity.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	p, ok := s.products[id]
	if !ok {
		return nil, &entity.NotFoundError{Entity: "product", ID: id}
	}
	view := s.productView(p)
	return &view, nil
}

func (s *Store) GetProducts(_ context.Context, filter entity.ProductFilter) ([]entity.Product, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, 0, s.Err
	}

	search := strings.ToLower(filter.Search)
	matched := []entity.Product{}
	for _, p := range s.products {
		switch {
		case !p.IsActive:
			continue
		case filter.CategoryID != nil && (p.CategoryID == nil || *p.CategoryID != *filter.CategoryID):
			continue
		case search != "" && !strings.Contains(strings.ToLower(p.Name+" "+p.Description), search):
			continue
		case filter.MinPrice != nil && p.Price.LessThan(*filter.MinPrice):
			continue
		case filter.MaxPrice != nil && p.Price.GreaterThan(*filter.MaxPrice):
			continue
		}
		matched = append(matched, s.productView(p))
	}

	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		var cmp int
		switch filter.SortBy {
		case entity.SortByPrice:
			cmp = a.Price.Cmp(b.Price)
		case entity.SortByName:
			cmp = strings.Compare(a.Name, b.Name)
		case entity.SortByStock:
			cmp = a.Stock - b.Stock
		default:
			cmp = a.CreatedAt.Compare(b.CreatedAt)
		}
		if cmp == 0 {
			cmp = int(a.ID - b.ID)
		}
		if filter.Descending {
			return cmp > 0
		}
		return cmp < 0
	})

	total := len(matched)
	start := min(filter.Offset(), total)
	end := min(start+filter.PerPage, total)
	return matched[start:end], total, nil
}

func (s *Store) GetCategories(_ context.Context) ([]entity.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	categories := append([]entity.Category{}, s.categories...)
	sort.Slice(categories, func(i, j int) bool { return categories[i].Name < categories[j].Name })
	return categories, nil
}

func (s *Store) CreateProduct(_ context.Context, req entity.CreateProductRequest) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return 0, s.Err
	}
	now := s.tick()
	id := s.id()
	s.products[id] = &entity.Product{
		ID:          id,
		Name:        req.Name,
		Description: req.Description,
		Price:       *req.Price,
		Stock:       req.Stock,
		CategoryID:  req.CategoryID,
		ImageURL:    req.ImageURL,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return id, nil
}

func (s *Store) UpdateProduct(_ context.Context, id int64, patch entity.ProductPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if patch.IsEmpty() {
		return &entity.ValidationError{Message: "No updatable fields supplied"}
	}
	p, ok := s.products[id]
	if !ok {
		return &entity.NotFoundError{Entity: "product", ID: id}
	}
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	if patch.Price != nil {
		p.Price = *patch.Price
	}
	if patch.Stock != nil {
		p.Stock = *patch.Stock
	}
	if patch.CategoryID != nil {
		p.CategoryID = patch.CategoryID
	}
	if patch.ImageURL != nil {
		p.ImageURL = patch.ImageURL
	}
	if patch.IsActive != nil {
		p.IsActive = *patch.IsActive
	}
	p.UpdatedAt = s.tick()
	return nil
}

func (s *Store) GetCartLines(_ context.Context, userID int64) ([]entity.CartLine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	lines := []entity.CartLine{}
	for key, row := range s.cart {
		if key.userID != userID {
			continue
		}
		p := s.products[key.productID]
		lines = append(lines, entity.CartLine{
			CartItemID: row.id,
			ProductID:  key.productID,
			Name:       p.Name,
			Price:      p.Price,
			Quantity:   row.quantity,
			ImageURL:   p.ImageURL,
			Stock:      p.Stock,
			IsActive:   p.IsActive,
			AddedAt:    row.addedAt,
		})
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].CartItemID < lines[j].CartItemID })
	return lines, nil
}

func (s *Store) AddItem(_ context.Context, userID, productID int64, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	key := cartKey{userID, productID}
	if row, ok := s.cart[key]; ok {
		row.quantity += quantity
		return nil
	}
	s.cart[key] = &cartRow{id: s.id(), quantity: quantity, addedAt: s.tick()}
	return nil
}

func (s *Store) SetQuantity(_ context.Context, userID, productID int64, quantity int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return false, s.Err
	}
	row, ok := s.cart[cartKey{userID, productID}]
	if !ok {
		return false, nil
	}
	row.quantity = quantity
	return true, nil
}

func (s *Store) RemoveItem(_ context.Context, userID, productID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	delete(s.cart, cartKey{userID, productID})
	return nil
}

func (s *Store) ClearCart(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if s.ClearCartErr != nil {
		return s.ClearCartErr
	}
	for key := range s.cart {
		if key.userID == userID {
			delete(s.cart, key)
		}
	}
	return nil
}

func (s *Store) ItemCount(_ context.Context, userID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return 0, s.Err
	}
	count := 0
	for key, row := range s.cart {
		if key.userID == userID {
			count += row.quantity
		}
	}
	return count, nil
}

// PlaceOrder checks every line's live stock before writing anything.
func (s *Store) PlaceOrder(_ context.Context, draft entity.OrderDraft) (int64, error) {
	if s.BeforePlaceOrder != nil {
		s.BeforePlaceOrder(s)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return 0, s.Err
	}
	if s.PlaceOrderErr != nil {
		return 0, s.PlaceOrderErr
	}

	for _, line := range draft.Lines {
		p, ok := s.products[line.ProductID]
		if !ok || !p.IsActive {
			return 0, &entity.ProductUnavailableError{ProductID: line.ProductID, Name: line.Name}
		}
		if p.Stock < line.Quantity {
			return 0, &entity.InsufficientStockError{
				ProductID: line.ProductID,
				Name:      line.Name,
				Available: p.Stock,
				Requested: line.Quantity,
			}
		}
	}

	now := s.tick()
	row := &orderRow{order: entity.Order{
		ID:              s.id(),
		UserID:          draft.UserID,
		TotalAmount:     draft.Total,
		Status:          entity.OrderStatusPending,
		ShippingAddress: draft.ShippingAddress,
		PaymentMethod:   draft.PaymentMethod,
		CreatedAt:       now,
		UpdatedAt:       now,
	}}
	for _, line := range draft.Lines {
		s.products[line.ProductID].Stock -= line.Quantity
		row.items = append(row.items, orderItemRow{productID: line.ProductID, quantity: line.Quantity, unitPrice: line.UnitPrice})
	}
	s.orders[row.order.ID] = row
	return row.order.ID, nil
}

func (s *Store) GetOrderByID(_ context.Context, id, userID int64) (*entity.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	if s.GetOrderErr != nil {
		return nil, s.GetOrderErr
	}
	row, ok := s.orders[id]
	if !ok || (userID != 0 && row.order.UserID != userID) {
		return nil, &entity.NotFoundError{Entity: "order", ID: id}
	}
	order := row.order
	order.Items = make([]entity.OrderItem, 0, len(row.items))
	for _, item := range row.items {
		p := s.products[item.productID]
		order.Items = append(order.Items, entity.OrderItem{
			ProductID: item.productID,
			Name:      p.Name,
			Quantity:  item.quantity,
			UnitPrice: item.unitPrice,
			Subtotal:  item.unitPrice.Mul(decimal.NewFromInt(int64(item.quantity))),
			ImageURL:  p.ImageURL,
		})
	}
	return &order, nil
}

func (s *Store) sortedOrders(keep func(*orderRow) bool) []*orderRow {
	rows := []*orderRow{}
	for _, row := range s.orders {
		if keep(row) {
			rows = append(rows, row)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].order.ID > rows[j].order.ID })
	return rows
}

func page[T any](items []T, page entity.PageRequest) []T {
	start := min(page.Offset(), len(items))
	end := min(start+page.PerPage, len(items))
	return items[start:end]
}

func (s *Store) GetUserOrders(_ context.Context, userID int64, pageReq entity.PageRequest) ([]entity.Order, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, 0, s.Err
	}
	rows := s.sortedOrders(func(r *orderRow) bool { return r.order.UserID == userID })
	orders := make([]entity.Order, 0, len(rows))
	for _, row := range rows {
		order := row.order
		order.Items = []entity.OrderItem{}
		orders = append(orders, order)
	}
	return page(orders, pageReq), len(orders), nil
}

func (s *Store) GetAllOrders(_ context.Context, status entity.OrderStatus, pageReq entity.PageRequest) ([]entity.OrderSummary, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, 0, s.Err
	}
	rows := s.sortedOrders(func(r *orderRow) bool { return status == "" || r.order.Status == status })
	summaries := make([]entity.OrderSummary, 0, len(rows))
	for _, row := range rows {
		summary := entity.OrderSummary{
			ID:            row.order.ID,
			UserID:        row.order.UserID,
			TotalAmount:   row.order.TotalAmount,
			Status:        row.order.Status,
			PaymentMethod: row.order.PaymentMethod,
			CreatedAt:     row.order.CreatedAt,
		}
		if user, ok := s.users[row.order.UserID]; ok {
			summary.CustomerName, summary.CustomerEmail = user.Name, user.Email
		}
		summaries = append(summaries, summary)
	}
	return page(summaries, pageReq), len(summaries), nil
}

func (s *Store) UpdateOrderStatus(_ context.Context, id int64, status entity.OrderStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return false, s.Err
	}
	row, ok := s.orders[id]
	if !ok {
		return false, nil
	}
	row.order.Status = status
	row.order.UpdatedAt = s.tick()
	return true, nil
}

func (s *Store) CancelOrder(_ context.Context, id, userID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return false, s.Err
	}
	row, ok := s.orders[id]
	if !ok || row.order.UserID != userID || !row.order.Status.Cancellable() {
		return false, nil
	}
	row.order.Status = entity.OrderStatusCancelled
	row.order.UpdatedAt = s.tick()
	return true, nil
}
