package subgraph

// BigInt and BigDecimal fields arrive as strings and are passed through unchanged.

// Network is the protocol-wide singleton
type Network struct {
	TotalUsers        string `json:"totalUsers"`
	TotalVouches      string `json:"totalVouches"`
	BootstrapComplete bool   `json:"bootstrapComplete"`
	LastUpdated       string `json:"lastUpdated"`
	MinimumStake      string `json:"minimumStake"`
	BonusCap          string `json:"bonusCap"`
}

// User is a node of the trust graph
type User struct {
	ID              string `json:"id"`
	Rank            string `json:"rank"`
	Score           string `json:"score"`
	IsBootstrapNode bool   `json:"isBootstrapNode"`
	InCount         int    `json:"inCount,omitempty"`
	OutCount        int    `json:"outCount,omitempty"`
	CreatedAt       string `json:"createdAt,omitempty"`
	UpdatedAt       string `json:"updatedAt,omitempty"`
	StakedAmount    string `json:"stakedAmount"`
	HasMinimumStake bool   `json:"hasMinimumStake"`
}

// UserRef is the endpoint of a vouch
type UserRef struct {
	ID              string `json:"id"`
	Rank            string `json:"rank,omitempty"`
	Score           string `json:"score,omitempty"`
	IsBootstrapNode bool   `json:"isBootstrapNode"`
}

// Vouch is a directed trust edge
type Vouch struct {
	ID               string  `json:"id"`
	From             UserRef `json:"from"`
	To               UserRef `json:"to"`
	TransactionHash  string  `json:"transactionHash,omitempty"`
	BlockNumber      string  `json:"blockNumber,omitempty"`
	BlockTimestamp   string  `json:"blockTimestamp"`
	RankTo           string  `json:"rankTo,omitempty"`
	ScoreFrom        string  `json:"scoreFrom,omitempty"`
	ScoreTo          string  `json:"scoreTo,omitempty"`
	IsBootstrapVouch bool    `json:"isBootstrapVouch"`
}

// IncomingVouch is a vouch received by a user
type IncomingVouch struct {
	ID             string `json:"id"`
	From           User   `json:"from"`
	BlockTimestamp string `json:"blockTimestamp"`
	ScoreFrom      string `json:"scoreFrom"`
}

// OutgoingVouch is a vouch given by a user
type OutgoingVouch struct {
	ID             string `json:"id"`
	To             User   `json:"to"`
	BlockTimestamp string `json:"blockTimestamp"`
	ScoreTo        string `json:"scoreTo"`
}

// UserDetails is a user with its neighbors
type UserDetails struct {
	User
	IncomingVouches []IncomingVouch `json:"incomingVouches"`
	OutgoingVouches []OutgoingVouch `json:"outgoingVouches"`
}

// NetworkStats is the explorer overview
type NetworkStats struct {
	Network  *Network `json:"network"`
	TopUsers []User   `json:"users"`
}

// NetworkGraph is the node and edge set the explorer renders
type NetworkGraph struct {
	Users   []User   `json:"users"`
	Vouches []Vouch  `json:"vouches"`
	Network *Network `json:"network"`
}

const networkGraphQuery = `query NetworkGraph($first: Int!) {
  users(first: $first, orderBy: score, orderDirection: desc) {
    id
    rank
    score
    isBootstrapNode
    inCount
    outCount
    createdAt
    updatedAt
    stakedAmount
    hasMinimumStake
  }
  vouches(first: $first, orderBy: blockTimestamp, orderDirection: asc) {
    id
    from { id }
    to { id }
    blockTimestamp
    rankTo
    scoreFrom
    scoreTo
  }
  network(id: "1") {
    totalUsers
    totalVouches
    bootstrapComplete
    lastUpdated
    minimumStake
    bonusCap
  }
}`

const searchUsersQuery = `query SearchUsers($searchTerm: String!, $first: Int!) {
  users(first: $first, where: { id_contains: $searchTerm }, orderBy: score, orderDirection: desc) {
    id
    rank
    score
    isBootstrapNode
    inCount
    outCount
    stakedAmount
    hasMinimumStake
  }
}`

const networkStatsQuery = `query NetworkStats {
  network(id: "1") {
    totalUsers
    totalVouches
    bootstrapComplete
    lastUpdated
    minimumStake
    bonusCap
  }
  users(first: 10, orderBy: score, orderDirection: desc) {
    id
    score
    rank
    isBootstrapNode
    stakedAmount
    hasMinimumStake
  }
}`

const userDetailsQuery = `query UserDetails($id: ID!) {
  user(id: $id) {
    id
    rank
    score
    isBootstrapNode
    inCount
    outCount
    createdAt
    updatedAt
    stakedAmount
    hasMinimumStake
    incomingVouches {
      id
      from { id rank score isBootstrapNode stakedAmount hasMinimumStake }
      blockTimestamp
      scoreFrom
    }
    outgoingVouches {
      id
      to { id rank score isBootstrapNode stakedAmount hasMinimumStake }
      blockTimestamp
      scoreTo
    }
  }
}`

const vouchesQuery = `query Vouches($first: Int!, $skip: Int!) {
  vouches(first: $first, skip: $skip, orderBy: blockTimestamp, orderDirection: desc) {
    id
    from { id rank isBootstrapNode }
    to { id rank isBootstrapNode }
    transactionHash
    blockNumber
    blockTimestamp
    rankTo
    scoreFrom
    scoreTo
    isBootstrapVouch
  }
}`
