package converter

import "fmt"

// Registry holds converters in registration order. Detection is
// first-match-wins, so the order converters are registered in is part of the
// contract: when two converters could both match ambiguous content, the one
// registered earlier wins.
type Registry struct {
	converters []Converter
}

// NewRegistry creates a registry with the given converters, in order.
func NewRegistry(converters ...Converter) *Registry {
	return &Registry{converters: converters}
}

// Register appends a converter after the existing ones.
func (r *Registry) Register(c Converter) {
	r.converters = append(r.converters, c)
}

// DetectBank returns the first registered converter whose Detect predicate
// accepts the file, or nil when none does.
func (r *Registry) DetectBank(content, fileName string) Converter {
	for _, c := range r.converters {
		if c.Detect(content, fileName) {
			return c
		}
	}
	return nil
}

// ParseStatement detects the bank and parses the statement. Returns
// ErrUnsupportedFormat when no converter matches; parse failures from the
// matched converter are wrapped and propagated.
func (r *Registry) ParseStatement(content, fileName string) (*ParseResult, error) {
	c := r.DetectBank(content, fileName)
	if c == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, fileName)
	}
	result, err := c.Parse(content)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", c.BankCode(), err)
	}
	return result, nil
}

// ByCode returns the converter with the given bank code, or nil.
func (r *Registry) ByCode(bankCode string) Converter {
	for _, c := range r.converters {
		if c.BankCode() == bankCode {
			return c
		}
	}
	return nil
}

// BankInfo describes a supported bank for UI listings.
type BankInfo struct {
	Code    string   `json:"code"`
	Name    string   `json:"name"`
	Formats []string `json:"formats"`
}

// SupportedBanks lists all registered banks in registration order.
func (r *Registry) SupportedBanks() []BankInfo {
	banks := make([]BankInfo, len(r.converters))
	for i, c := range r.converters {
		banks[i] = BankInfo{
			Code:    c.BankCode(),
			Name:    c.BankName(),
			Formats: c.SupportedFormats(),
		}
	}
	return banks
}
