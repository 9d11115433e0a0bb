package catalog

// Catalog is the top-level structure of the catalog file.
//
//	servers:
//	  - hostname: web-1.example.com
//	domains:
//	  - example.com
//	pages:
//	  - title: Production
//	    hostname: status.example.com
//	    locale: en_GB
//	    servers: [web-1.example.com]
//	    domains: [example.com]
type Catalog struct {
	Servers []ServerEntry `yaml:"servers"`
	Domains []string      `yaml:"domains"`
	Pages   []PageEntry   `yaml:"pages"`
}

type ServerEntry struct {
	Hostname string `yaml:"hostname"`
}

// PageEntry references servers by hostname and domains by name.
// Nil Servers or Domains leave the page's memberships untouched.
type PageEntry struct {
	Title    string   `yaml:"title"`
	Hostname string   `yaml:"hostname,omitempty"`
	Locale   string   `yaml:"locale,omitempty"`
	Style    string   `yaml:"style,omitempty"`
	Servers  []string `yaml:"servers,omitempty"`
	Domains  []string `yaml:"domains,omitempty"`
}
