package cache_test

import (
	"context"
	"fmt"

	"github.com/jonwraymond/breadcrumb/cache"
)

func ExampleNewMemoryCache() {
	c := cache.NewMemoryCache()
	ctx := context.Background()

	_ = c.Set(ctx, "breadcrumb:id:42", []byte(`{"title":"Docs"}`), 0)

	value, ok, _ := c.Get(ctx, "breadcrumb:id:42")
	fmt.Println(ok, string(value))
	// Output:
	// true {"title":"Docs"}
}

func ExamplePageKeyer_Key() {
	keyer := cache.NewPageKeyer("wiki", cache.KeyByID)
	key, _ := keyer.Key("42")
	fmt.Println(key)
	// Output:
	// wiki:id:42
}
