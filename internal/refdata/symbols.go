package refdata

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// SymbolSet is the set of instrument symbols the pipeline accepts.
type SymbolSet map[string]struct{}

// NewSymbolSet builds a set from a list of symbols, uppercased and trimmed.
func NewSymbolSet(symbols []string) SymbolSet {
	set := make(SymbolSet, len(symbols))
	for _, s := range symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		set[s] = struct{}{}
	}
	return set
}

// Has reports whether the symbol is in the set.
func (s SymbolSet) Has(symbol string) bool {
	_, ok := s[symbol]
	return ok
}

// Slice returns the symbols in sorted order.
func (s SymbolSet) Slice() []string {
	out := make([]string, 0, len(s))
	for sym := range s {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}

// Load resolves the accepted symbol set. With a DSN configured it reads the
// active symbols from the reference table once at startup; otherwise it
// falls back to the static list.
func Load(ctx context.Context, dsn, table string, static []string, logger *zap.Logger) (SymbolSet, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if dsn == "" {
		set := NewSymbolSet(static)
		logger.Info("refdata.static_symbols", zap.Strings("symbols", set.Slice()))
		return set, nil
	}

	connCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	pool, err := pgxpool.New(connCtx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	defer pool.Close()

	rows, err := pool.Query(connCtx, fmt.Sprintf(`
		SELECT symbol
		FROM %s
		WHERE is_active = TRUE
		ORDER BY symbol;
	`, table))
	if err != nil {
		return nil, fmt.Errorf("symbol query failed: %w", err)
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var sym string
		if err := rows.Scan(&sym); err != nil {
			return nil, fmt.Errorf("symbol scan failed: %w", err)
		}
		symbols = append(symbols, sym)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("symbol rows failed: %w", err)
	}
	if len(symbols) == 0 {
		return nil, fmt.Errorf("no active symbols in %s", table)
	}

	set := NewSymbolSet(symbols)
	logger.Info("refdata.symbols_loaded",
		zap.String("table", table),
		zap.Int("count", len(set)))
	return set, nil
}
