package policy

//go:generate go run github.com/dmarkham/enumer -type Kind -trimprefix Kind -transform lower -yaml -output kind.gen.go

type Kind int

const (
	KindRole Kind = iota
	KindGrant
	KindRevoke
	KindDelete
)

// Tag is the YAML tag the statement kind is written with.
func (k Kind) Tag() string {
	return "!" + k.String()
}

func kindForTag(tag string) (Kind, bool) {
	for _, k := range KindValues() {
		if tag == k.Tag() {
			return k, true
		}
	}
	return 0, false
}
