package handlers

import (
	"time"

	"github.com/MrSnakeDoc/taust/internal/domain"
	"github.com/MrSnakeDoc/taust/internal/status"
)

type serverResponse struct {
	ID        string    `json:"id"`
	Hostname  string    `json:"hostname"`
	CreatedAt time.Time `json:"created_at"`
}

type domainResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type announcementResponse struct {
	ID        string    `json:"id"`
	Kind      string    `json:"type"`
	PlannedAt time.Time `json:"planned_at"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type pageResponse struct {
	ID            string                 `json:"id"`
	Title         string                 `json:"title"`
	Hostname      string                 `json:"hostname,omitempty"`
	Style         string                 `json:"style"`
	Locale        string                 `json:"locale"`
	CreatedAt     time.Time              `json:"created_at"`
	Servers       []serverResponse       `json:"servers,omitempty"`
	Domains       []domainResponse       `json:"domains,omitempty"`
	Announcements []announcementResponse `json:"announcements,omitempty"`
}

type metricResponse struct {
	CollectedAt time.Time      `json:"collected_at"`
	Status      string         `json:"status,omitempty"`
	Payload     domain.Payload `json:"payload"`
}

type serverHealthResponse struct {
	Server  serverResponse  `json:"server"`
	Verdict string          `json:"verdict"`
	Latest  *metricResponse `json:"latest,omitempty"`
}

type summaryResponse struct {
	PageID      string                 `json:"page_id"`
	Title       string                 `json:"title"`
	Locale      string                 `json:"locale"`
	Status      string                 `json:"status"`
	Servers     []serverHealthResponse `json:"servers"`
	Active      []announcementResponse `json:"active_announcements"`
	GeneratedAt time.Time              `json:"generated_at"`
}

type serverDetailResponse struct {
	serverHealthResponse
	Recent []metricResponse `json:"recent"`
}

func toServer(s domain.Server) serverResponse {
	return serverResponse{ID: s.ID, Hostname: s.Hostname, CreatedAt: s.CreatedAt}
}

func toServers(in []domain.Server) []serverResponse {
	out := make([]serverResponse, 0, len(in))
	for _, s := range in {
		out = append(out, toServer(s))
	}
	return out
}

func toDomains(in []domain.Domain) []domainResponse {
	out := make([]domainResponse, 0, len(in))
	for _, d := range in {
		out = append(out, domainResponse{ID: d.ID, Name: d.Name, CreatedAt: d.CreatedAt})
	}
	return out
}

func toAnnouncement(a domain.Announcement) announcementResponse {
	return announcementResponse{
		ID:        a.ID,
		Kind:      string(a.Kind),
		PlannedAt: a.PlannedAt,
		Title:     a.Title,
		Content:   a.Content,
		CreatedAt: a.CreatedAt,
	}
}

func toAnnouncements(in []domain.Announcement) []announcementResponse {
	out := make([]announcementResponse, 0, len(in))
	for _, a := range in {
		out = append(out, toAnnouncement(a))
	}
	return out
}

// toPage renders a page. Associations are only present when the page was
// loaded with them.
func toPage(p domain.Page) pageResponse {
	resp := pageResponse{
		ID:        p.ID,
		Title:     p.Title,
		Hostname:  p.Hostname,
		Style:     p.Style,
		Locale:    p.Locale,
		CreatedAt: p.CreatedAt,
	}
	if len(p.Servers) > 0 {
		resp.Servers = toServers(p.Servers)
	}
	if len(p.Domains) > 0 {
		resp.Domains = toDomains(p.Domains)
	}
	if len(p.Announcements) > 0 {
		resp.Announcements = toAnnouncements(domain.SortNewestFirst(p.Announcements))
	}
	return resp
}

func toMetric(m *domain.Metric) *metricResponse {
	if m == nil {
		return nil
	}
	indicator, _ := m.Payload.Indicator()
	return &metricResponse{CollectedAt: m.CollectedAt, Status: indicator, Payload: m.Payload}
}

func toSummary(sum status.Summary) summaryResponse {
	servers := make([]serverHealthResponse, 0, len(sum.Servers))
	for _, h := range sum.Servers {
		servers = append(servers, serverHealthResponse{
			Server:  toServer(h.Server),
			Verdict: string(h.Verdict),
			Latest:  toMetric(h.Latest),
		})
	}
	return summaryResponse{
		PageID:      sum.Page.ID,
		Title:       sum.Page.Title,
		Locale:      sum.Page.Locale,
		Status:      string(sum.Status),
		Servers:     servers,
		Active:      toAnnouncements(sum.Active),
		GeneratedAt: sum.GeneratedAt,
	}
}

func toServerDetail(d status.ServerDetail) serverDetailResponse {
	recent := make([]metricResponse, 0, len(d.Recent))
	for i := range d.Recent {
		recent = append(recent, *toMetric(&d.Recent[i]))
	}
	return serverDetailResponse{
		serverHealthResponse: serverHealthResponse{
			Server:  toServer(d.Server),
			Verdict: string(d.Verdict),
			Latest:  toMetric(d.Latest),
		},
		Recent: recent,
	}
}
