package wampclient

// InvocationPolicy controls how the dealer picks among multiple registrants
// of the same procedure pattern. Mirrors pkg/wampcore/realm.InvocationPolicy
// without depending on the router-side package.
type InvocationPolicy int

const (
	Single InvocationPolicy = iota
	RoundRobin
	Random
	First
	Last
)

func (p InvocationPolicy) wireValue() string {
	switch p {
	case RoundRobin:
		return "roundrobin"
	case Random:
		return "random"
	case First:
		return "first"
	case Last:
		return "last"
	default:
		return "single"
	}
}
