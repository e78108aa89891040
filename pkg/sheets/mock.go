package sheets

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// MockClient is an in-memory spreadsheet for testing
type MockClient struct {
	mu        sync.Mutex
	id        string
	tabs      map[string][]Row
	order     []string
	getErr    error
	appendErr error
	updateErr error
	clearErr  error
	titlesErr error
	addErr    error
	calls     map[string]int
}

// MockOption configures the mock client
type MockOption func(*MockClient)

// WithSheet seeds a tab with rows
func WithSheet(title string, rows []Row) MockOption {
	return func(m *MockClient) {
		m.setTab(title, rows)
	}
}

// WithGetError sets an error to return from GetValues
func WithGetError(err error) MockOption {
	return func(m *MockClient) {
		m.getErr = err
	}
}

// WithAppendError sets an error to return from AppendValues
func WithAppendError(err error) MockOption {
	return func(m *MockClient) {
		m.appendErr = err
	}
}

// WithUpdateError sets an error to return from UpdateValues
func WithUpdateError(err error) MockOption {
	return func(m *MockClient) {
		m.updateErr = err
	}
}

// WithClearError sets an error to return from ClearValues
func WithClearError(err error) MockOption {
	return func(m *MockClient) {
		m.clearErr = err
	}
}

// WithSheetTitlesError sets an error to return from SheetTitles
func WithSheetTitlesError(err error) MockOption {
	return func(m *MockClient) {
		m.titlesErr = err
	}
}

// WithAddSheetError sets an error to return from AddSheet
func WithAddSheetError(err error) MockOption {
	return func(m *MockClient) {
		m.addErr = err
	}
}

// NewMockClient creates a new mock spreadsheet
func NewMockClient(opts ...MockOption) *MockClient {
	m := &MockClient{
		id:    "mock-spreadsheet",
		tabs:  make(map[string][]Row),
		calls: make(map[string]int),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SetGetError changes the GetValues error after construction
func (m *MockClient) SetGetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getErr = err
}

// SetAppendError changes the AppendValues error after construction
func (m *MockClient) SetAppendError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.appendErr = err
}

// SetUpdateError changes the UpdateValues error after construction
func (m *MockClient) SetUpdateError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateErr = err
}

// Sheet returns a copy of a tab's rows as the API would read them back:
// trailing empty cells and rows trimmed
func (m *MockClient) Sheet(title string) []Row {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := copyRows(m.tabs[title])
	for i := range rows {
		rows[i] = trimCells(rows[i])
	}
	return trimRows(rows)
}

// Calls returns how many times an operation ran ("get", "append", ...)
func (m *MockClient) Calls(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

func (m *MockClient) SpreadsheetID() string {
	return m.id
}

func (m *MockClient) setTab(title string, rows []Row) {
	if _, ok := m.tabs[title]; !ok {
		m.order = append(m.order, title)
	}
	m.tabs[title] = copyRows(rows)
}

func (m *MockClient) GetValues(ctx context.Context, rng string) ([]Row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["get"]++
	if m.getErr != nil {
		return nil, m.getErr
	}

	a, err := parseA1(rng)
	if err != nil {
		return nil, err
	}
	grid, ok := m.tabs[a.title]
	if !ok {
		return nil, fmt.Errorf("unable to parse range: %s", rng)
	}

	var out []Row
	for r := a.startRow; r < len(grid) && (a.endRow < 0 || r <= a.endRow); r++ {
		src := grid[r]
		var row Row
		for c := a.startCol; c < len(src) && (a.endCol < 0 || c <= a.endCol); c++ {
			row = append(row, src[c])
		}
		out = append(out, trimCells(row))
	}
	return trimRows(out), nil
}

func (m *MockClient) AppendValues(ctx context.Context, rng string, rows []Row) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["append"]++
	if m.appendErr != nil {
		return m.appendErr
	}

	a, err := parseA1(rng)
	if err != nil {
		return err
	}
	grid, ok := m.tabs[a.title]
	if !ok {
		return fmt.Errorf("unable to parse range: %s", rng)
	}
	grid = trimRows(grid)
	for _, r := range rows {
		grid = append(grid, place(nil, a.startCol, r))
	}
	m.tabs[a.title] = grid
	return nil
}

func (m *MockClient) UpdateValues(ctx context.Context, rng string, rows []Row) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["update"]++
	if m.updateErr != nil {
		return m.updateErr
	}

	a, err := parseA1(rng)
	if err != nil {
		return err
	}
	grid, ok := m.tabs[a.title]
	if !ok {
		return fmt.Errorf("unable to parse range: %s", rng)
	}
	for i, r := range rows {
		idx := a.startRow + i
		for len(grid) <= idx {
			grid = append(grid, nil)
		}
		grid[idx] = place(grid[idx], a.startCol, r)
	}
	m.tabs[a.title] = grid
	return nil
}

func (m *MockClient) ClearValues(ctx context.Context, rng string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["clear"]++
	if m.clearErr != nil {
		return m.clearErr
	}

	a, err := parseA1(rng)
	if err != nil {
		return err
	}
	grid, ok := m.tabs[a.title]
	if !ok {
		return fmt.Errorf("unable to parse range: %s", rng)
	}
	for r := a.startRow; r < len(grid) && (a.endRow < 0 || r <= a.endRow); r++ {
		for c := a.startCol; c < len(grid[r]) && (a.endCol < 0 || c <= a.endCol); c++ {
			grid[r][c] = ""
		}
		grid[r] = trimCells(grid[r])
	}
	m.tabs[a.title] = grid
	return nil
}

func (m *MockClient) SheetTitles(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["titles"]++
	if m.titlesErr != nil {
		return nil, m.titlesErr
	}
	out := make([]string, len(m.order))
	copy(out, m.order)
	return out, nil
}

func (m *MockClient) AddSheet(ctx context.Context, title string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["add"]++
	if m.addErr != nil {
		return m.addErr
	}
	if _, ok := m.tabs[title]; ok {
		return fmt.Errorf("a sheet with the name %q already exists", title)
	}
	m.setTab(title, nil)
	return nil
}

type a1Range struct {
	title              string
	startCol, startRow int
	endCol, endRow     int // -1 when open
}

// parseA1 understands the subset of A1 notation the repository uses:
// "Tab", "Tab!A:G", "Tab!A1", "Tab!A2:B2".
func parseA1(rng string) (a1Range, error) {
	a := a1Range{endCol: -1, endRow: -1}
	title, cells, hasCells := strings.Cut(rng, "!")
	if strings.HasPrefix(title, "'") && strings.HasSuffix(title, "'") && len(title) >= 2 {
		title = strings.ReplaceAll(title[1:len(title)-1], "''", "'")
	}
	a.title = title
	if !hasCells || cells == "" {
		return a, nil
	}

	start, end, isSpan := strings.Cut(cells, ":")
	sc, sr, err := parseCell(start)
	if err != nil {
		return a, fmt.Errorf("unable to parse range: %s", rng)
	}
	a.startCol = max(sc, 0)
	a.startRow = max(sr, 0)
	if !isSpan {
		return a, nil
	}
	ec, er, err := parseCell(end)
	if err != nil {
		return a, fmt.Errorf("unable to parse range: %s", rng)
	}
	a.endCol, a.endRow = ec, er
	return a, nil
}

// parseCell returns 0-based column and row; -1 for a missing part
func parseCell(cell string) (int, int, error) {
	i := 0
	col := -1
	for i < len(cell) && cell[i] >= 'A' && cell[i] <= 'Z' {
		if col < 0 {
			col = 0
		}
		col = col*26 + int(cell[i]-'A'+1)
		i++
	}
	if col > 0 {
		col--
	}
	row := -1
	if i < len(cell) {
		n, err := strconv.Atoi(cell[i:])
		if err != nil || n < 1 {
			return 0, 0, fmt.Errorf("bad cell %q", cell)
		}
		row = n - 1
	}
	if col < 0 && row < 0 {
		return 0, 0, fmt.Errorf("bad cell %q", cell)
	}
	return col, row, nil
}

func place(dst Row, col int, src Row) Row {
	for len(dst) < col+len(src) {
		dst = append(dst, "")
	}
	copy(dst[col:], src)
	return dst
}

func trimCells(r Row) Row {
	n := len(r)
	for n > 0 && r[n-1] == "" {
		n--
	}
	return r[:n]
}

func trimRows(rows []Row) []Row {
	n := len(rows)
	for n > 0 && len(trimCells(rows[n-1])) == 0 {
		n--
	}
	return rows[:n]
}

func copyRows(rows []Row) []Row {
	out := make([]Row, len(rows))
	for i, r := range rows {
		out[i] = append(Row(nil), r...)
	}
	return out
}

var _ Client = (*MockClient)(nil)
var _ Client = (*GoogleClient)(nil)
