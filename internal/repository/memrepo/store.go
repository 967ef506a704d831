// Package memrepo хранилище в памяти процесса. Реализует тот же uow.UOW, что и postgres,
// используется для локального запуска (STORAGE=memory) и в тестах сервисного слоя.
package memrepo

import (
	"context"
	"sync"

	"github.com/fsdevblog/groph-pos/internal/domain"
	"github.com/fsdevblog/groph-pos/internal/repository/repoargs"
	"github.com/fsdevblog/groph-pos/pkg/uow"
	"github.com/google/uuid"
)

// Store данные хранилища. Все поля защищены mu.
type Store struct {
	mu        sync.Mutex
	products  map[int64]*domain.Product
	customers map[int64]*domain.Customer
	employees map[int64]*domain.Employee
	orders    map[uuid.UUID]*domain.Order
	sales     map[uuid.UUID]*domain.Sale

	nextCustomerID int64
	nextEmployeeID int64
}

func NewStore() *Store {
	return &Store{
		products:  make(map[int64]*domain.Product),
		customers: make(map[int64]*domain.Customer),
		employees: make(map[int64]*domain.Employee),
		orders:    make(map[uuid.UUID]*domain.Order),
		sales:     make(map[uuid.UUID]*domain.Sale),
	}
}

// PutProduct добавляет или заменяет товар каталога.
func (s *Store) PutProduct(p domain.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ID] = &p
}

// AddCustomer добавляет покупателя и возвращает его с присвоенным id.
func (s *Store) AddCustomer(c domain.Customer) domain.Customer {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextCustomerID++
	c.ID = s.nextCustomerID
	s.customers[c.ID] = &c
	return c
}

// AddEmployee добавляет сотрудника и возвращает его с присвоенным id.
func (s *Store) AddEmployee(e domain.Employee) domain.Employee {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextEmployeeID++
	e.ID = s.nextEmployeeID
	s.employees[e.ID] = &e
	return e
}

// Stock текущий остаток товара. Второе значение false, если товара нет.
func (s *Store) Stock(productID int64) (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[productID]
	if !ok {
		return 0, false
	}
	return p.Stock, true
}

// SaleCount количество сохраненных продаж.
func (s *Store) SaleCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sales)
}

// Seed наполняет хранилище демонстрационными данными для локального запуска.
func (s *Store) Seed() {
	s.AddCustomer(domain.Customer{Ref: domain.WalkInCustomerRef, Name: "Walk-in customer"})
	s.AddEmployee(domain.Employee{Ref: "cashier", Name: "Cashier"})
	for _, p := range demoCatalog() {
		s.PutProduct(p)
	}
}

// journal список отмен изменений, сделанных в транзакции.
type journal struct {
	undo []func()
}

func (j *journal) record(fn func()) {
	if j != nil {
		j.undo = append(j.undo, fn)
	}
}

func (j *journal) rollback() {
	for i := len(j.undo) - 1; i >= 0; i-- {
		j.undo[i]()
	}
	j.undo = nil
}

// session репозитории работают через нее. Вне транзакции journal равен nil и изменения сразу окончательные.
type session struct {
	store   *Store
	journal *journal
}

// UnitOfWork транзакции в памяти. Транзакции выполняются строго по одной, откат применяет журнал отмен
// в обратном порядке.
type UnitOfWork struct {
	store *Store
	txSem chan struct{}
}

func NewUnitOfWork(store *Store) *UnitOfWork {
	return &UnitOfWork{store: store, txSem: make(chan struct{}, 1)}
}

// Do выполняет fn в транзакции. Ошибка fn или паника откатывает все изменения транзакции.
func (u *UnitOfWork) Do(ctx context.Context, fn func(context.Context, uow.TX) error) error {
	select {
	case u.txSem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err() //nolint:wrapcheck
	}
	defer func() { <-u.txSem }()

	j := &journal{}
	committed := false
	defer func() {
		if !committed {
			u.store.mu.Lock()
			j.rollback()
			u.store.mu.Unlock()
		}
	}()

	if fnErr := fn(ctx, newTransaction(session{store: u.store, journal: j})); fnErr != nil {
		return fnErr
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr //nolint:wrapcheck
	}
	committed = true
	return nil
}

func (u *UnitOfWork) GetRepository(name uow.RepositoryName) (uow.Repository, error) {
	return repositoryFor(name, session{store: u.store})
}

type transaction struct {
	sess  session
	cache map[uow.RepositoryName]uow.Repository
}

func newTransaction(sess session) *transaction {
	return &transaction{sess: sess, cache: make(map[uow.RepositoryName]uow.Repository)}
}

func (t *transaction) Get(name uow.RepositoryName) (uow.Repository, error) {
	if repo, ok := t.cache[name]; ok {
		return repo, nil
	}
	repo, err := repositoryFor(name, t.sess)
	if err != nil {
		return nil, err
	}
	t.cache[name] = repo
	return repo, nil
}

func repositoryFor(name uow.RepositoryName, sess session) (uow.Repository, error) {
	switch repoargs.RepositoryName(name) {
	case repoargs.ProductRepoName:
		return &ProductRepository{sess: sess}, nil
	case repoargs.PartyRepoName:
		return &PartyRepository{sess: sess}, nil
	case repoargs.OrderRepoName:
		return &OrderRepository{sess: sess}, nil
	case repoargs.SaleRepoName:
		return &SaleRepository{sess: sess}, nil
	default:
		return nil, uow.ErrRepositoryNotRegistered
	}
}
