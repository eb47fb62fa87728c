package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/codyseavey/magicgest/internal/config"
	"github.com/codyseavey/magicgest/internal/metrics"
	"github.com/codyseavey/magicgest/internal/models"
	"golang.org/x/time/rate"
	"gorm.io/datatypes"
)

const userAgent = "magicgest/1.0"

// ScryfallService is a thin client for the Scryfall REST API. Every call
// waits on a shared rate limiter; nothing is retried.
type ScryfallService struct {
	client  *http.Client
	baseURL string
	limiter *rate.Limiter
}

func NewScryfallService(cfg config.ScryfallConfig) *ScryfallService {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	perSecond := cfg.RatePerSecond
	if perSecond <= 0 {
		perSecond = 10
	}
	return &ScryfallService{
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		limiter: rate.NewLimiter(rate.Limit(perSecond), 1),
	}
}

type scryfallSearchResponse struct {
	Data       []scryfallCard `json:"data"`
	TotalCards int            `json:"total_cards"`
	HasMore    bool           `json:"has_more"`
}

type scryfallCard struct {
	ImageURIs    *scryfallImages    `json:"image_uris"`
	CardFaces    []scryfallFace     `json:"card_faces"`
	Prices       map[string]*string `json:"prices"`
	Colors       []string           `json:"colors"`
	ID           string             `json:"id"`
	Name         string             `json:"name"`
	SetName      string             `json:"set_name"`
	Set          string             `json:"set"`
	CollectorNum string             `json:"collector_number"`
	Rarity       string             `json:"rarity"`
	ManaCost     *string            `json:"mana_cost"`
	TypeLine     string             `json:"type_line"`
	OracleText   string             `json:"oracle_text"`
	CMC          float64            `json:"cmc"`
	ScryfallURI  string             `json:"scryfall_uri"`
}

type scryfallImages struct {
	Small  string `json:"small"`
	Normal string `json:"normal"`
	Large  string `json:"large"`
}

type scryfallFace struct {
	ImageURIs *scryfallImages `json:"image_uris"`
	ManaCost  string          `json:"mana_cost"`
	Colors    []string        `json:"colors"`
}

type scryfallErrorBody struct {
	Details string `json:"details"`
}

// ScryfallSet is the subset of set metadata used for icons
type ScryfallSet struct {
	Code       string `json:"code"`
	Name       string `json:"name"`
	IconSVGURI string `json:"icon_svg_uri"`
}

// get performs a rate-limited GET and returns the response when the status
// is 200. ok is false on 404. Any other status becomes an *UpstreamError.
func (s *ScryfallService) get(ctx context.Context, endpoint, reqURL string) (resp *http.Response, ok bool, err error) {
	start := time.Now()
	defer func() {
		metrics.ScryfallRequestDuration.Observe(time.Since(start).Seconds())
		result := "ok"
		switch {
		case err != nil:
			result = "error"
		case !ok:
			result = "not_found"
		}
		metrics.ScryfallRequestsTotal.WithLabelValues(endpoint, result).Inc()
	}()

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, false, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err = s.client.Do(req)
	if err != nil {
		return nil, false, &UpstreamError{Message: err.Error()}
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return resp, true, nil
	case http.StatusNotFound:
		resp.Body.Close()
		return nil, false, nil
	default:
		defer resp.Body.Close()
		var body scryfallErrorBody
		_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&body)
		return nil, false, &UpstreamError{Status: resp.StatusCode, Message: body.Details}
	}
}

func (s *ScryfallService) getCard(ctx context.Context, endpoint, reqURL string) (*models.Card, error) {
	resp, ok, err := s.get(ctx, endpoint, reqURL)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, notFound("card")
	}
	defer resp.Body.Close()

	var sc scryfallCard
	if err := json.NewDecoder(resp.Body).Decode(&sc); err != nil {
		return nil, fmt.Errorf("failed to decode scryfall response: %w", err)
	}

	card := convertToCard(sc)
	return &card, nil
}

// SearchCards runs a Scryfall full-text search. A 404 (no matches) is an
// empty page, not an error.
func (s *ScryfallService) SearchCards(ctx context.Context, query string, page int) (*models.CardSearchResult, error) {
	if page < 1 {
		page = 1
	}
	params := url.Values{}
	params.Set("q", query)
	params.Set("page", strconv.Itoa(page))
	reqURL := fmt.Sprintf("%s/cards/search?%s", s.baseURL, params.Encode())

	resp, ok, err := s.get(ctx, "search", reqURL)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &models.CardSearchResult{Cards: []models.Card{}, Page: page}, nil
	}
	defer resp.Body.Close()

	var searchResp scryfallSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&searchResp); err != nil {
		return nil, fmt.Errorf("failed to decode scryfall response: %w", err)
	}

	cards := make([]models.Card, len(searchResp.Data))
	for i, sc := range searchResp.Data {
		cards[i] = convertToCard(sc)
	}

	return &models.CardSearchResult{
		Cards:      cards,
		TotalCount: searchResp.TotalCards,
		HasMore:    searchResp.HasMore,
		Page:       page,
	}, nil
}

func (s *ScryfallService) GetCard(ctx context.Context, id string) (*models.Card, error) {
	return s.getCard(ctx, "card", fmt.Sprintf("%s/cards/%s", s.baseURL, url.PathEscape(id)))
}

// GetCardByName looks a card up by its exact name
func (s *ScryfallService) GetCardByName(ctx context.Context, name string) (*models.Card, error) {
	return s.getCard(ctx, "named", fmt.Sprintf("%s/cards/named?exact=%s", s.baseURL, url.QueryEscape(name)))
}

func (s *ScryfallService) GetRandomCard(ctx context.Context) (*models.Card, error) {
	return s.getCard(ctx, "random", s.baseURL+"/cards/random")
}

func (s *ScryfallService) GetSet(ctx context.Context, code string) (*ScryfallSet, error) {
	reqURL := fmt.Sprintf("%s/sets/%s", s.baseURL, url.PathEscape(strings.ToLower(code)))
	resp, ok, err := s.get(ctx, "set", reqURL)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, notFound("set")
	}
	defer resp.Body.Close()

	var set ScryfallSet
	if err := json.NewDecoder(resp.Body).Decode(&set); err != nil {
		return nil, fmt.Errorf("failed to decode scryfall response: %w", err)
	}
	return &set, nil
}

// FetchBytes downloads a Scryfall-hosted asset such as a set icon
func (s *ScryfallService) FetchBytes(ctx context.Context, assetURL string) ([]byte, error) {
	resp, ok, err := s.get(ctx, "asset", assetURL)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, notFound("asset")
	}
	defer resp.Body.Close()

	return io.ReadAll(io.LimitReader(resp.Body, 4<<20))
}

func convertToCard(sc scryfallCard) models.Card {
	var imageURI string
	if sc.ImageURIs != nil {
		imageURI = firstNonEmpty(sc.ImageURIs.Normal, sc.ImageURIs.Small)
	} else if len(sc.CardFaces) > 0 && sc.CardFaces[0].ImageURIs != nil {
		imageURI = firstNonEmpty(sc.CardFaces[0].ImageURIs.Normal, sc.CardFaces[0].ImageURIs.Small)
	}

	var manaCost string
	if sc.ManaCost != nil {
		manaCost = *sc.ManaCost
	} else if len(sc.CardFaces) > 0 {
		costs := make([]string, 0, len(sc.CardFaces))
		for _, f := range sc.CardFaces {
			if f.ManaCost != "" {
				costs = append(costs, f.ManaCost)
			}
		}
		manaCost = strings.Join(costs, " // ")
	}

	colorSrc := sc.Colors
	if colorSrc == nil {
		for _, f := range sc.CardFaces {
			colorSrc = append(colorSrc, f.Colors...)
		}
	}
	colors := make([]models.Color, 0, len(colorSrc))
	seen := make(map[string]bool, len(colorSrc))
	for _, c := range colorSrc {
		if seen[c] {
			continue
		}
		seen[c] = true
		colors = append(colors, models.Color(c))
	}

	prices := make(models.PriceSnapshot, len(sc.Prices))
	for k, v := range sc.Prices {
		if v != nil && *v != "" {
			prices[k] = *v
		}
	}

	return models.Card{
		ID:              sc.ID,
		Name:            sc.Name,
		SetCode:         sc.Set,
		SetName:         sc.SetName,
		CollectorNumber: sc.CollectorNum,
		Rarity:          models.Rarity(sc.Rarity),
		ImageURI:        imageURI,
		ManaCost:        manaCost,
		TypeLine:        sc.TypeLine,
		OracleText:      sc.OracleText,
		Colors:          datatypes.NewJSONSlice(colors),
		CMC:             sc.CMC,
		Prices:          datatypes.NewJSONType(prices),
		ScryfallURI:     sc.ScryfallURI,
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
