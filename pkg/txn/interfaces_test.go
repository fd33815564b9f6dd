package txn

//go:generate mockgen -source interfaces_test.go -destination mocks_test.go -package txn

type transport interface {
	Transport
}
