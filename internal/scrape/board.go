package scrape

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"jobtriage-engine/internal/domain"
)

const SourceCareerBoard = "careerboard"

const boardBaseURL = "https://www.careerboard.com"

// CareerBoard scrapes careerboard.com search results. Listing pages carry
// cards with title, company, location and posting date; the job page itself
// has the full description.
type CareerBoard struct {
	fetcher Fetcher
	base    string
}

func NewCareerBoard(f Fetcher) *CareerBoard {
	return &CareerBoard{fetcher: f, base: boardBaseURL}
}

func (b *CareerBoard) Name() string { return SourceCareerBoard }

func (b *CareerBoard) searchURL(s *domain.Search, page int) string {
	q := url.Values{}
	q.Set("q", s.Keywords)
	if s.LocationName != "" {
		q.Set("location", s.LocationName)
	}
	if s.GeoCode != nil {
		q.Set("geoId", strconv.FormatInt(*s.GeoCode, 10))
	}
	if flex := s.Flexibility(); flex != "" {
		q.Set("workplace", string(flex))
	}
	if s.EasyApply {
		q.Set("easy_apply", "1")
	}
	if page > 1 {
		q.Set("page", strconv.Itoa(page))
	}
	return b.base + "/jobs/search?" + q.Encode()
}

// PageCount reads the pagination strip off the first results page. A page
// that fetches empty or has no pagination counts as a single page.
func (b *CareerBoard) PageCount(ctx context.Context, s *domain.Search) (int, error) {
	body := b.fetcher.Fetch(ctx, b.searchURL(s, 1))
	if body == "" {
		return 0, nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return 0, err
	}

	last := 1
	doc.Find("ul.pagination li a").Each(func(_ int, a *goquery.Selection) {
		if n, err := strconv.Atoi(cleanText(a.Text())); err == nil && n > last {
			last = n
		}
	})
	return last, nil
}

// ParsePage extracts leads from one results page. Cards missing fields come
// back as partial leads; ingestion decides what survives.
func (b *CareerBoard) ParsePage(ctx context.Context, s *domain.Search, page int) ([]domain.JobLead, error) {
	body := b.fetcher.Fetch(ctx, b.searchURL(s, page))
	if body == "" {
		return nil, fmt.Errorf("careerboard: empty response for page %d", page)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	var leads []domain.JobLead
	doc.Find("div.job-card").Each(func(_ int, card *goquery.Selection) {
		lead := domain.JobLead{
			Title:       cleanText(card.Find("h3.job-card__title").First().Text()),
			CompanyName: cleanText(card.Find(".job-card__company").First().Text()),
			Location:    cleanText(card.Find(".job-card__location").First().Text()),
			DateFound:   &now,
		}
		if href, ok := card.Find("a.job-card__link").First().Attr("href"); ok {
			lead.URL = b.absolute(href)
		}
		if href, ok := card.Find("a.job-card__company-link").First().Attr("href"); ok {
			lead.CompanyURL = b.absolute(href)
		}
		if dt, ok := card.Find("time").First().Attr("datetime"); ok {
			if at, err := time.Parse("2006-01-02", cleanText(dt)); err == nil {
				lead.DatePosted = &at
			}
		}
		leads = append(leads, lead)
	})
	return leads, nil
}

// PopulateJob hydrates a single job from its posting page.
func (b *CareerBoard) PopulateJob(ctx context.Context, j *domain.Job) error {
	body := b.fetcher.Fetch(ctx, j.URL)
	if body == "" {
		return fmt.Errorf("careerboard: empty response for %s", j.URL)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return err
	}

	if doc.Find(".job-expired, .not-found").Length() > 0 {
		return ErrNotFound
	}
	desc := doc.Find("div.job-description").First()
	if desc.Length() == 0 {
		return ErrNotFound
	}

	j.RawContent = body
	j.Description = cleanText(desc.Text())

	switch strings.ToLower(cleanText(doc.Find(".job-meta__workplace").First().Text())) {
	case "remote":
		j.Flexibility = domain.FlexRemote
	case "hybrid":
		j.Flexibility = domain.FlexHybrid
	case "on-site", "onsite":
		j.Flexibility = domain.FlexOnsite
	}
	j.EasyApply = doc.Find("button.easy-apply").Length() > 0
	return nil
}

func (b *CareerBoard) absolute(href string) string {
	href = strings.TrimSpace(href)
	if strings.HasPrefix(href, "/") {
		return b.base + href
	}
	return href
}
