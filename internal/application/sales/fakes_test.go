package sales

import (
	"context"
	"sort"
	"sync"
	"time"

	ledgerapp "github.com/erp/shopcore/internal/application/ledger"
	"github.com/erp/shopcore/internal/domain/ledger"
	"github.com/erp/shopcore/internal/domain/sales"
	"github.com/erp/shopcore/internal/domain/shared"
	"github.com/erp/shopcore/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// memStore is an in-memory stand-in for the database. Execute holds the
// store mutex for the whole unit and restores a snapshot on error, which
// gives the same all-or-nothing behaviour as a serializable transaction.
type memStore struct {
	mu        sync.Mutex
	accounts  map[uuid.UUID]ledger.Account
	postings  []ledger.Posting
	sales     map[uuid.UUID]sales.Sale
	returns   []sales.Return
	products  map[uuid.UUID]memProduct
	customers map[uuid.UUID]sales.CustomerContact
	events    []shared.DomainEvent
	rates     map[string]sales.CurrencyRate
}

type memProduct struct {
	snap sales.ProductSnapshot
	sold bool
}

func newMemStore() *memStore {
	return &memStore{
		accounts:  map[uuid.UUID]ledger.Account{},
		sales:     map[uuid.UUID]sales.Sale{},
		products:  map[uuid.UUID]memProduct{},
		customers: map[uuid.UUID]sales.CustomerContact{},
		rates:     map[string]sales.CurrencyRate{},
	}
}

type memSnapshot struct {
	accounts map[uuid.UUID]ledger.Account
	postings []ledger.Posting
	sales    map[uuid.UUID]sales.Sale
	returns  []sales.Return
	products map[uuid.UUID]memProduct
	events   []shared.DomainEvent
}

func (m *memStore) snapshot() memSnapshot {
	s := memSnapshot{
		accounts: make(map[uuid.UUID]ledger.Account, len(m.accounts)),
		postings: append([]ledger.Posting(nil), m.postings...),
		sales:    make(map[uuid.UUID]sales.Sale, len(m.sales)),
		returns:  append([]sales.Return(nil), m.returns...),
		products: make(map[uuid.UUID]memProduct, len(m.products)),
		events:   append([]shared.DomainEvent(nil), m.events...),
	}
	for k, v := range m.accounts {
		s.accounts[k] = v
	}
	for k, v := range m.sales {
		s.sales[k] = cloneSale(v)
	}
	for k, v := range m.products {
		s.products[k] = v
	}
	return s
}

func (m *memStore) restore(s memSnapshot) {
	m.accounts, m.postings, m.sales = s.accounts, s.postings, s.sales
	m.returns, m.products, m.events = s.returns, s.products, s.events
}

func cloneSale(s sales.Sale) sales.Sale {
	s.LineItems = append([]sales.LineItem(nil), s.LineItems...)
	s.ClearEvents()
	return s
}

// Execute implements TransactionScope
func (m *memStore) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := m.snapshot()
	if err := fn(memRepos{m}); err != nil {
		m.restore(snap)
		return err
	}
	return nil
}

// ledgerScope adapts the store to the ledger TransactionScope
type ledgerScope struct{ m *memStore }

func (l ledgerScope) Execute(ctx context.Context, fn func(repos ledgerapp.TransactionalRepositories) error) error {
	return l.m.Execute(ctx, func(repos TransactionalRepositories) error { return fn(repos) })
}

type memRepos struct{ m *memStore }

func (r memRepos) Accounts() ledger.AccountRepository { return memAccounts(r) }
func (r memRepos) Postings() ledger.PostingRepository { return memPostings(r) }
func (r memRepos) Events() shared.EventPublisher      { return memEvents(r) }
func (r memRepos) Sales() sales.SaleRepository        { return memSales(r) }
func (r memRepos) Returns() sales.ReturnRepository    { return memReturns(r) }
func (r memRepos) Inventory() sales.InventoryStore    { return memInventory(r) }
func (r memRepos) Customers() sales.CustomerStore     { return memCustomers(r) }

type memAccounts memRepos

func (a memAccounts) FindByID(_ context.Context, id uuid.UUID) (*ledger.Account, error) {
	acc, ok := a.m.accounts[id]
	if !ok {
		return nil, shared.ErrAccountNotFound
	}
	return &acc, nil
}

func (a memAccounts) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*ledger.Account, error) {
	return a.FindByID(ctx, id)
}

func (a memAccounts) ExistsByNumber(_ context.Context, number string) (bool, error) {
	for _, acc := range a.m.accounts {
		if acc.AccountNumber == number {
			return true, nil
		}
	}
	return false, nil
}

func (a memAccounts) Create(_ context.Context, acc *ledger.Account) error {
	c := *acc
	c.ClearEvents()
	a.m.accounts[acc.ID] = c
	return nil
}

func (a memAccounts) Update(ctx context.Context, acc *ledger.Account) error {
	return a.Create(ctx, acc)
}

type memPostings memRepos

func (p memPostings) Create(_ context.Context, posting *ledger.Posting) error {
	p.m.postings = append(p.m.postings, *posting)
	return nil
}

func (p memPostings) ListByAccount(_ context.Context, id uuid.UUID, page shared.Page) ([]ledger.Posting, error) {
	var out []ledger.Posting
	for i := len(p.m.postings) - 1; i >= 0; i-- {
		if p.m.postings[i].AccountID == id {
			out = append(out, p.m.postings[i])
		}
	}
	return out, nil
}

func (p memPostings) CountByAccount(_ context.Context, id uuid.UUID) (int64, error) {
	var n int64
	for _, posting := range p.m.postings {
		if posting.AccountID == id {
			n++
		}
	}
	return n, nil
}

func (p memPostings) ListAllByAccountAscending(_ context.Context, id uuid.UUID) ([]ledger.Posting, error) {
	var out []ledger.Posting
	for _, posting := range p.m.postings {
		if posting.AccountID == id {
			out = append(out, posting)
		}
	}
	return out, nil
}

type memEvents memRepos

func (e memEvents) Publish(_ context.Context, events ...shared.DomainEvent) error {
	e.m.events = append(e.m.events, events...)
	return nil
}

type memSales memRepos

func (s memSales) FindByID(_ context.Context, id uuid.UUID) (*sales.Sale, error) {
	sale, ok := s.m.sales[id]
	if !ok {
		return nil, shared.ErrSaleNotFound
	}
	c := cloneSale(sale)
	return &c, nil
}

func (s memSales) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*sales.Sale, error) {
	return s.FindByID(ctx, id)
}

func (s memSales) FindByBellNumber(_ context.Context, bell int64) (*sales.Sale, error) {
	for _, sale := range s.m.sales {
		if sale.BellNumber == bell {
			c := cloneSale(sale)
			return &c, nil
		}
	}
	return nil, shared.ErrSaleNotFound
}

func (s memSales) ExistsByBellNumber(ctx context.Context, bell int64) (bool, error) {
	_, err := s.FindByBellNumber(ctx, bell)
	return err == nil, nil
}

func (s memSales) NextBellNumber(_ context.Context) (int64, error) {
	var maxBell int64
	for _, sale := range s.m.sales {
		if sale.BellNumber > maxBell {
			maxBell = sale.BellNumber
		}
	}
	return maxBell + 1, nil
}

func (s memSales) Create(ctx context.Context, sale *sales.Sale) error {
	if exists, _ := s.ExistsByBellNumber(ctx, sale.BellNumber); exists {
		return shared.ErrBellNumberConflict
	}
	s.m.sales[sale.ID] = cloneSale(*sale)
	return nil
}

func (s memSales) UpdateReturnState(_ context.Context, sale *sales.Sale) error {
	s.m.sales[sale.ID] = cloneSale(*sale)
	return nil
}

func (s memSales) List(_ context.Context, f sales.SaleFilter, page shared.Page) ([]*sales.Sale, int64, error) {
	var out []*sales.Sale
	for _, sale := range s.m.sales {
		if f.CustomerID != nil && sale.CustomerID != *f.CustomerID {
			continue
		}
		if f.Outstanding && !sale.Receipt.IsOutstanding() {
			continue
		}
		c := cloneSale(sale)
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BellNumber > out[j].BellNumber })
	total := int64(len(out))
	if page.Offset >= len(out) {
		return []*sales.Sale{}, total, nil
	}
	out = out[page.Offset:]
	if page.Limit > 0 && page.Limit < len(out) {
		out = out[:page.Limit]
	}
	return out, total, nil
}

type memReturns memRepos

func (r memReturns) Create(_ context.Context, ret *sales.Return) error {
	r.m.returns = append(r.m.returns, *ret)
	return nil
}

func (r memReturns) ListBySale(_ context.Context, saleID uuid.UUID) ([]*sales.Return, error) {
	var out []*sales.Return
	for i := range r.m.returns {
		if r.m.returns[i].SaleID == saleID {
			c := r.m.returns[i]
			out = append(out, &c)
		}
	}
	return out, nil
}

type memInventory memRepos

func (i memInventory) IsAvailable(_ context.Context, id uuid.UUID) (bool, error) {
	p, ok := i.m.products[id]
	if !ok {
		return false, shared.ErrProductNotFound
	}
	return !p.sold, nil
}

func (i memInventory) Snapshot(_ context.Context, id uuid.UUID) (*sales.ProductSnapshot, error) {
	p, ok := i.m.products[id]
	if !ok {
		return nil, shared.ErrProductNotFound
	}
	snap := p.snap
	return &snap, nil
}

func (i memInventory) MarkSold(_ context.Context, id uuid.UUID) error {
	p, ok := i.m.products[id]
	if !ok {
		return shared.ErrProductNotFound
	}
	if p.sold {
		return shared.ErrProductUnavailable
	}
	p.sold = true
	i.m.products[id] = p
	return nil
}

func (i memInventory) Release(_ context.Context, id uuid.UUID) error {
	p, ok := i.m.products[id]
	if !ok {
		return shared.ErrProductNotFound
	}
	p.sold = false
	i.m.products[id] = p
	return nil
}

type memCustomers memRepos

func (c memCustomers) Exists(_ context.Context, id uuid.UUID) (bool, error) {
	_, ok := c.m.customers[id]
	return ok, nil
}

func (c memCustomers) Contact(_ context.Context, id uuid.UUID) (*sales.CustomerContact, error) {
	contact, ok := c.m.customers[id]
	if !ok {
		return nil, shared.ErrCustomerNotFound
	}
	return &contact, nil
}

// memRates implements sales.RateRepository
type memRates struct{ m *memStore }

func (r memRates) RateForDate(_ context.Context, date time.Time) (*sales.CurrencyRate, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	rate, ok := r.m.rates[sales.DateOnly(date).Format(time.DateOnly)]
	if !ok {
		return nil, shared.ErrRateUnavailable
	}
	return &rate, nil
}

func (r memRates) Save(_ context.Context, rate *sales.CurrencyRate) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.rates[rate.EffectiveDate.Format(time.DateOnly)] = *rate
	return nil
}

// memReceivables implements sales.ReceivableRepository over the store
type memReceivables struct{ m *memStore }

func (r memReceivables) summaries() map[uuid.UUID]*sales.ReceivableSummary {
	out := map[uuid.UUID]*sales.ReceivableSummary{}
	for _, sale := range r.m.sales {
		if !sale.Receipt.IsOutstanding() {
			continue
		}
		sum, ok := out[sale.CustomerID]
		if !ok {
			sum = &sales.ReceivableSummary{
				CustomerID:   sale.CustomerID,
				CustomerName: sale.CustomerName,
				Currency:     sale.Receipt.Currency,
			}
			out[sale.CustomerID] = sum
		}
		sum.TotalAmount = sum.TotalAmount.Add(sale.Receipt.Total)
		sum.TotalPaid = sum.TotalPaid.Add(sale.Receipt.Paid)
		sum.TotalDiscount = sum.TotalDiscount.Add(sale.Receipt.Discount)
		sum.TotalRemaining = sum.TotalRemaining.Add(sale.Receipt.Remaining)
		sum.OutstandingSales++
	}
	return out
}

func (r memReceivables) ListOutstanding(_ context.Context, f sales.ReceivableFilter, _ shared.Page) ([]sales.ReceivableSummary, int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []sales.ReceivableSummary
	for _, s := range r.summaries() {
		if f.MinAmount != nil && s.TotalRemaining.LessThan(*f.MinAmount) {
			continue
		}
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TotalRemaining.GreaterThan(out[j].TotalRemaining) })
	return out, int64(len(out)), nil
}

func (r memReceivables) ForCustomer(_ context.Context, id uuid.UUID) (*sales.ReceivableSummary, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if s, ok := r.summaries()[id]; ok {
		return s, nil
	}
	return &sales.ReceivableSummary{CustomerID: id, TotalRemaining: decimal.Zero, Currency: valueobject.AFN}, nil
}

// readSales locks the store around each call, for the non-transactional service dependencies
type readSales struct{ m *memStore }

func (r readSales) repo() memSales { return memSales{r.m} }

func (r readSales) FindByID(ctx context.Context, id uuid.UUID) (*sales.Sale, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	return r.repo().FindByID(ctx, id)
}

func (r readSales) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*sales.Sale, error) {
	return r.FindByID(ctx, id)
}

func (r readSales) FindByBellNumber(ctx context.Context, bell int64) (*sales.Sale, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	return r.repo().FindByBellNumber(ctx, bell)
}

func (r readSales) ExistsByBellNumber(ctx context.Context, bell int64) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	return r.repo().ExistsByBellNumber(ctx, bell)
}

func (r readSales) NextBellNumber(ctx context.Context) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	return r.repo().NextBellNumber(ctx)
}

func (r readSales) Create(ctx context.Context, sale *sales.Sale) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	return r.repo().Create(ctx, sale)
}

func (r readSales) UpdateReturnState(ctx context.Context, sale *sales.Sale) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	return r.repo().UpdateReturnState(ctx, sale)
}

func (r readSales) List(ctx context.Context, f sales.SaleFilter, page shared.Page) ([]*sales.Sale, int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	return r.repo().List(ctx, f, page)
}

type readReturns struct{ m *memStore }

func (r readReturns) Create(ctx context.Context, ret *sales.Return) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	return memReturns{r.m}.Create(ctx, ret)
}

func (r readReturns) ListBySale(ctx context.Context, saleID uuid.UUID) ([]*sales.Return, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	return memReturns{r.m}.ListBySale(ctx, saleID)
}

type readCustomers struct{ m *memStore }

func (r readCustomers) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	return memCustomers{r.m}.Exists(ctx, id)
}

func (r readCustomers) Contact(ctx context.Context, id uuid.UUID) (*sales.CustomerContact, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	return memCustomers{r.m}.Contact(ctx, id)
}

// seed helpers

func (m *memStore) addCustomer(name string) uuid.UUID {
	id := uuid.New()
	m.customers[id] = sales.CustomerContact{ID: id, Name: name, Phone: "0799000000"}
	return id
}

func (m *memStore) addProduct(code string) uuid.UUID {
	id := uuid.New()
	m.products[id] = memProduct{snap: sales.ProductSnapshot{ProductID: id, Code: code, Name: "Carpet " + code}}
	return id
}

func (m *memStore) addAccount(number string, balance decimal.Decimal, frozen bool) uuid.UUID {
	acc, err := ledger.NewAccount(number, "Account "+number, valueobject.AFN, balance)
	if err != nil {
		panic(err)
	}
	if frozen {
		if err := acc.Freeze(); err != nil {
			panic(err)
		}
	}
	acc.ClearEvents()
	m.accounts[acc.ID] = *acc
	return acc.ID
}

func (m *memStore) isSold(id uuid.UUID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.products[id].sold
}

func (m *memStore) renameProduct(id uuid.UUID, name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.products[id]
	p.snap.Name = name
	m.products[id] = p
}

func (m *memStore) eventsOfType(t string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.events {
		if e.EventType() == t {
			n++
		}
	}
	return n
}

var (
	_ TransactionScope           = (*memStore)(nil)
	_ ledgerapp.TransactionScope = ledgerScope{}
	_ sales.RateRepository       = memRates{}
	_ sales.SaleRepository       = readSales{}
	_ sales.ReceivableRepository = memReceivables{}
)
