package models

import (
	"time"
)

// FailurePolicy tells a handler how a resolver reports upstream failures
type FailurePolicy int

const (
	// FailureSuppress resolvers never return an error; failures degrade to an empty record
	FailureSuppress FailurePolicy = iota
	// FailurePropagate resolvers return upstream errors to the caller
	FailurePropagate
)

// String returns the policy name used in logs
func (p FailurePolicy) String() string {
	switch p {
	case FailureSuppress:
		return "suppress"
	case FailurePropagate:
		return "propagate"
	default:
		return "unknown"
	}
}

// NamingRecord holds the reverse-resolved name and text records for an address
type NamingRecord struct {
	Name        *string `json:"name"`
	Avatar      *string `json:"avatar"`
	Description *string `json:"description"`
	Twitter     *string `json:"twitter"`
	GitHub      *string `json:"github"`
	Website     *string `json:"website"`
	Email       *string `json:"email"`
	Discord     *string `json:"discord"`
	FetchedAt   int64   `json:"fetchedAt"` // Unix milliseconds
}

// NewNamingRecord returns an all-null record stamped with the given time
func NewNamingRecord(now time.Time) *NamingRecord {
	return &NamingRecord{FetchedAt: now.UnixMilli()}
}

// HasName reports whether the address has a primary name
func (r *NamingRecord) HasName() bool {
	return r != nil && r.Name != nil && *r.Name != ""
}

// Asset is a single non-fungible token owned by an address
type Asset struct {
	TokenID         string  `json:"tokenId"`
	ContractAddress string  `json:"contractAddress"`
	Name            *string `json:"name"`
	Description     *string `json:"description"`
	Image           *string `json:"image"`
	ThumbnailURL    *string `json:"thumbnailUrl"`
	CollectionName  *string `json:"collectionName"`
	TokenType       string  `json:"tokenType"` // ERC721 or ERC1155
}

// ID returns the composite identifier used for profile selection
func (a Asset) ID() string {
	return a.ContractAddress + ":" + a.TokenID
}

// Token standards reported on assets
const (
	TokenTypeERC721  = "ERC721"
	TokenTypeERC1155 = "ERC1155"
)

// AssetInventory is the full set of assets owned by an address at fetch time
type AssetInventory struct {
	Assets     []Asset `json:"assets"`
	TotalCount int     `json:"totalCount"`
	FetchedAt  int64   `json:"fetchedAt"` // Unix milliseconds
}

// ActivityStats summarizes wallet activity
type ActivityStats struct {
	TransactionCount uint64 `json:"transactionCount"`
	Balance          string `json:"balance"` // native token, decimal string
	// FirstActivityTimestamp is never populated; no source for it exists yet.
	FirstActivityTimestamp *int64 `json:"firstActivityTimestamp"`
}

// UserProfile is the user-authored display preference for an address
type UserProfile struct {
	SelectedAssetID         *string `json:"selectedAssetId"` // contract:tokenId
	SelectedAssetImage      *string `json:"selectedAssetImage"`
	SelectedAssetName       *string `json:"selectedAssetName"`
	SelectedAssetCollection *string `json:"selectedAssetCollection"`
	UpdatedAt               int64   `json:"updatedAt"` // Unix milliseconds
}

// ProfileUpdate is the POST body accepted for a profile write
type ProfileUpdate struct {
	SelectedAssetID         *string `json:"selectedAssetId"`
	SelectedAssetImage      *string `json:"selectedAssetImage"`
	SelectedAssetName       *string `json:"selectedAssetName"`
	SelectedAssetCollection *string `json:"selectedAssetCollection"`
}

// ToProfile converts an update into a full replacement profile. Empty strings become null.
func (u ProfileUpdate) ToProfile(now time.Time) *UserProfile {
	return &UserProfile{
		SelectedAssetID:         NullIfEmpty(u.SelectedAssetID),
		SelectedAssetImage:      NullIfEmpty(u.SelectedAssetImage),
		SelectedAssetName:       NullIfEmpty(u.SelectedAssetName),
		SelectedAssetCollection: NullIfEmpty(u.SelectedAssetCollection),
		UpdatedAt:               now.UnixMilli(),
	}
}

// Socials groups the social handles of a naming record
type Socials struct {
	Twitter *string `json:"twitter"`
	GitHub  *string `json:"github"`
	Website *string `json:"website"`
	Email   *string `json:"email"`
	Discord *string `json:"discord"`
}

// SelectedAsset is the display subset of a profile selection
type SelectedAsset struct {
	Image      *string `json:"image"`
	Name       *string `json:"name"`
	Collection *string `json:"collection"`
}

// Avatar sources, in precedence order
const (
	AvatarSourceNaming      = "naming"
	AvatarSourceAsset       = "asset"
	AvatarSourcePlaceholder = "placeholder"
)

// WalletIdentity is the composed display identity for an address
type WalletIdentity struct {
	Address         string         `json:"address"`
	ChecksumAddress string         `json:"checksumAddress"`
	Name            *string        `json:"name"`
	DisplayName     string         `json:"displayName"` // name, or the shortened address
	Avatar          *string        `json:"avatar"`
	AvatarSource    string         `json:"avatarSource"`
	SelectedAsset   *SelectedAsset `json:"selectedAsset"`
	Socials         Socials        `json:"socials"`
	PlaceholderSeed uint32         `json:"placeholderSeed"`
}

// Envelope is the uniform response body for every API endpoint
type Envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
	Error   string      `json:"error,omitempty"`
	Cached  *bool       `json:"cached,omitempty"`
}

// BatchNamingRequest is the body of a batch naming cache read
type BatchNamingRequest struct {
	Addresses []string `json:"addresses"`
}

// StringPtr returns a pointer to s
func StringPtr(s string) *string {
	return &s
}

// NullIfEmpty maps nil and "" to nil
func NullIfEmpty(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}

// Deref returns the pointed-to string or ""
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
