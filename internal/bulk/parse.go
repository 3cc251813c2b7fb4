package bulk

// Result is what one parse pass produces: accepted orders and rejected
// rows, both in input order.
type Result struct {
	Orders []ParsedOrderRequest `json:"orders"`
	Errors []RowError           `json:"errors"`
	Lines  int                  `json:"lines"`
}

// Accepted returns the number of rows that produced an order.
func (r *Result) Accepted() int { return len(r.Orders) }

// Rejected returns the number of rows that produced a RowError.
func (r *Result) Rejected() int { return len(r.Errors) }

// Blocked reports whether the result must not be submitted: any row error
// blocks the whole batch, and an empty batch has nothing to submit.
func (r *Result) Blocked() bool {
	return len(r.Errors) > 0 || len(r.Orders) == 0
}

// Batch returns the bulk create body for the accepted orders.
func (r *Result) Batch() BulkCreateRequest {
	orders := make([]ParsedOrderRequest, len(r.Orders))
	copy(orders, r.Orders)
	return BulkCreateRequest{Orders: orders}
}

// Parser runs the tokenize → validate → resolve → assemble pipeline.
type Parser struct {
	Schema   Schema
	Resolver *Resolver
	Options  AssembleOptions
}

// NewParser creates a Parser for the given schema and store list.
func NewParser(schema Schema, stores []StoreRecord, policy DuplicatePolicy, opts AssembleOptions) *Parser {
	return &Parser{
		Schema:   schema,
		Resolver: NewResolver(stores, policy),
		Options:  opts,
	}
}

// Parse classifies every non-blank line of text. It never fails: problems
// are reported per row in Result.Errors.
func (p *Parser) Parse(text string) *Result {
	return p.ParseRows(TokenizeLines(SplitLines(text), p.Schema.Delimiter))
}

// ParseRows classifies already tokenized rows.
func (p *Parser) ParseRows(rows []RawRow) *Result {
	res := &Result{
		Orders: []ParsedOrderRequest{},
		Errors: []RowError{},
		Lines:  len(rows),
	}

	for _, row := range rows {
		order, rowErr := p.parseRow(row)
		if rowErr != nil {
			res.Errors = append(res.Errors, *rowErr)
			continue
		}
		res.Orders = append(res.Orders, order)
	}

	return res
}

func (p *Parser) parseRow(row RawRow) (ParsedOrderRequest, *RowError) {
	fields, rowErr := Validate(row, p.Schema)
	if rowErr != nil {
		return ParsedOrderRequest{}, rowErr
	}
	store, rowErr := resolveRow(p.Resolver, fields)
	if rowErr != nil {
		return ParsedOrderRequest{}, rowErr
	}
	return Assemble(fields, store, p.Options), nil
}
