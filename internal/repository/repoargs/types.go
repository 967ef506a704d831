package repoargs

type RepositoryName string

const (
	ProductRepoName RepositoryName = "product"
	PartyRepoName   RepositoryName = "party"
	OrderRepoName   RepositoryName = "order"
	SaleRepoName    RepositoryName = "sale"
)
