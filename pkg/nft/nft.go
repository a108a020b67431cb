// Package nft lists NFTs owned by wallets, through the SimpleHash indexer.
package nft

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	xe "github.com/cozyartz/etchNFT/pkg/errors"
	"github.com/cozyartz/etchNFT/pkg/internal/rest"
	"github.com/cozyartz/etchNFT/pkg/payments/web3"
)

var ErrInvalidAddress = errors.New("invalid wallet address")

// Chains searched for NFTs.
var Chains = []string{"ethereum", "polygon", "base", "optimism"}

const pageSize = 50

type Trait struct {
	TraitType string `json:"trait_type"`
	Value     any    `json:"value"`
}

type NFT struct {
	Contract    string  `json:"contract"`
	TokenId     string  `json:"tokenId"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Image       string  `json:"image,omitempty"`
	Collection  string  `json:"collection,omitempty"`
	Chain       string  `json:"chain"`
	Traits      []Trait `json:"traits"`
}

type Indexer interface {
	// Owned lists NFTs owned by the wallet.
	//
	// # Returns
	//
	// - error: ErrInvalidAddress for malformed wallets.
	Owned(ctx context.Context, wallet string) ([]NFT, error)
}

type SimpleHash struct {
	apiKey  string
	baseURL string
	rest    rest.Client
}

func NewSimpleHash(apiKey string, baseURL string) *SimpleHash {
	return &SimpleHash{
		apiKey:  apiKey,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		rest:    rest.Client{Attempts: 3, Backoff: 200 * time.Millisecond},
	}
}

type simplehashResponse struct {
	NFTs []struct {
		Chain           string `json:"chain"`
		ContractAddress string `json:"contract_address"`
		TokenId         string `json:"token_id"`
		Name            string `json:"name"`
		Description     string `json:"description"`
		ImageURL        string `json:"image_url"`
		Previews        struct {
			ImageMediumURL string `json:"image_medium_url"`
		} `json:"previews"`
		Collection struct {
			Name string `json:"name"`
		} `json:"collection"`
		ExtraMetadata struct {
			Attributes []Trait `json:"attributes"`
		} `json:"extra_metadata"`
	} `json:"nfts"`
}

func (s *SimpleHash) Owned(ctx context.Context, wallet string) ([]NFT, error) {
	if !web3.IsAddress(wallet) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidAddress, wallet)
	}

	q := url.Values{}
	q.Set("wallet_addresses", wallet)
	q.Set("chains", strings.Join(Chains, ","))
	q.Set("limit", fmt.Sprint(pageSize))
	header := http.Header{}
	header.Set("X-API-KEY", s.apiKey)

	resp := simplehashResponse{}
	if err := s.rest.Do(
		ctx, http.MethodGet, s.baseURL+"/api/v0/nfts/owners?"+q.Encode(), header, nil, &resp,
	); err != nil {
		return nil, xe.Wrap(err)
	}

	nfts := make([]NFT, 0, len(resp.NFTs))
	for _, n := range resp.NFTs {
		name := n.Name
		if name == "" {
			name = fmt.Sprintf("%s #%s", n.Collection.Name, n.TokenId)
		}
		image := n.ImageURL
		if image == "" {
			image = n.Previews.ImageMediumURL
		}
		traits := n.ExtraMetadata.Attributes
		if traits == nil {
			traits = []Trait{}
		}
		nfts = append(nfts, NFT{
			Contract:    n.ContractAddress,
			TokenId:     n.TokenId,
			Name:        name,
			Description: n.Description,
			Image:       image,
			Collection:  n.Collection.Name,
			Chain:       n.Chain,
			Traits:      traits,
		})
	}
	return nfts, nil
}

// Cached caches listings of an Indexer in redis.
type Cached struct {
	base   Indexer
	client *redis.Client
	ttl    time.Duration
}

func NewCached(base Indexer, client *redis.Client, ttl time.Duration) *Cached {
	return &Cached{base: base, client: client, ttl: ttl}
}

func cacheKey(wallet string) string {
	return "etchnft:nfts:" + strings.ToLower(wallet)
}

// Owned returns cached listing if any. Otherwise it asks the base Indexer and caches the result.
//
// Cache errors are not fatal; the base Indexer is asked.
func (c *Cached) Owned(ctx context.Context, wallet string) ([]NFT, error) {
	if !web3.IsAddress(wallet) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidAddress, wallet)
	}
	key := cacheKey(wallet)

	if raw, err := c.client.Get(ctx, key).Bytes(); err == nil {
		nfts := []NFT{}
		if err := json.Unmarshal(raw, &nfts); err == nil {
			return nfts, nil
		}
	}

	nfts, err := c.base.Owned(ctx, wallet)
	if err != nil {
		return nil, err
	}
	if raw, err := json.Marshal(nfts); err == nil {
		c.client.Set(ctx, key, raw, c.ttl)
	}
	return nfts, nil
}
