package denominations

import (
	"fmt"
	"os"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/shopspring/decimal"

	"github.com/iho/tillclose/internal/domain"
)

type fileSchema struct {
	Denominations []entrySchema `toml:"denomination"`
}

type entrySchema struct {
	Label string `toml:"label"`
	Value string `toml:"value"`
}

// Load reads a denomination set from a TOML file. An empty path yields the
// default set.
func Load(path string) (domain.DenominationSet, error) {
	if strings.TrimSpace(path) == "" {
		return domain.DefaultDenominationSet(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return domain.DenominationSet{}, fmt.Errorf("read denominations file: %w", err)
	}

	return Parse(data)
}

// Parse decodes a denomination set. Entries keep their file order.
func Parse(data []byte) (domain.DenominationSet, error) {
	var file fileSchema
	if err := toml.Unmarshal(data, &file); err != nil {
		return domain.DenominationSet{}, fmt.Errorf("decode denominations file: %w", err)
	}

	if len(file.Denominations) == 0 {
		return domain.DenominationSet{}, fmt.Errorf("%w: no [[denomination]] entries", domain.ErrInvalidDenominationSet)
	}

	items := make([]domain.Denomination, 0, len(file.Denominations))
	for i, entry := range file.Denominations {
		value, err := decimal.NewFromString(strings.TrimSpace(entry.Value))
		if err != nil {
			return domain.DenominationSet{}, fmt.Errorf("%w: entry %d has invalid value %q: %w", domain.ErrInvalidDenominationSet, i+1, entry.Value, err)
		}
		items = append(items, domain.Denomination{Label: entry.Label, FaceValue: value})
	}

	return domain.NewDenominationSet(items)
}

// Marshal encodes a denomination set in the file format Load reads.
func Marshal(set domain.DenominationSet) ([]byte, error) {
	file := fileSchema{}
	for _, d := range set.Items() {
		file.Denominations = append(file.Denominations, entrySchema{Label: d.Label, Value: d.FaceValue.String()})
	}

	data, err := toml.Marshal(file)
	if err != nil {
		return nil, fmt.Errorf("encode denominations file: %w", err)
	}
	return data, nil
}
