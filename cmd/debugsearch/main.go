// Command debugsearch prints the site-restricted search hit and the photo
// vnsdesk would pick for a headline. It does not call the model.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/hyperifyio/vnsdesk/internal/extract"
	"github.com/hyperifyio/vnsdesk/internal/fetch"
	"github.com/hyperifyio/vnsdesk/internal/image"
	"github.com/hyperifyio/vnsdesk/internal/search"
)

func main() {
	headline := "Prime Minister receives foreign ambassadors"
	if len(os.Args) > 1 {
		headline = strings.Join(os.Args[1:], " ")
	}
	domain := os.Getenv("IMAGE_DOMAIN")
	if domain == "" {
		domain = image.DefaultDomain
	}
	client := &http.Client{Timeout: 20 * time.Second}

	var prov search.Provider
	if key := os.Getenv("SERPER_API_KEY"); key != "" {
		prov = &search.Serper{APIKey: key, HTTPClient: client}
	} else {
		base := os.Getenv("SEARX_URL")
		if base == "" {
			base = "http://localhost:8888"
		}
		prov = &search.SearxNG{BaseURL: base, HTTPClient: client, UserAgent: "debugsearch/1.0"}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 45*time.Second)
	defer cancel()

	q := search.SiteQuery(domain, headline)
	res, err := prov.Search(ctx, q, 5)
	fmt.Printf("%s: %q\n", prov.Name(), q)
	if err != nil {
		fmt.Println("err:", err)
		os.Exit(1)
	}
	for i, r := range res {
		fmt.Printf("%d. %s | %s\n", i+1, r.Title, r.URL)
	}
	top, ok := search.First(res)
	if !ok {
		fmt.Println(image.NoImageCaption)
		return
	}

	fc := &fetch.Client{HTTPClient: client, UserAgent: fetch.DefaultUserAgent, MaxAttempts: 2}
	page, err := fc.Get(ctx, top.URL)
	if err != nil {
		fmt.Println("fetch err:", err)
		os.Exit(1)
	}
	fmt.Println("page:   ", page.URL)
	fmt.Println("title:  ", extract.Title(page.Body))
	img, ok := extract.New(image.DefaultSelector).Extract(page.Body, page.URL)
	if !ok {
		fmt.Println(image.NoImageCaption)
		return
	}
	fmt.Println("image:  ", img.URL)
	fmt.Println("caption:", extract.NormalizeCaption(img.Caption))
}
