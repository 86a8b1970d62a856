// Command compare runs one comparison from the command line and prints the
// result as JSON.
//
//	compare -currency EUR -mode best_sell_net "AK-47 | Redline (Field-Tested)"
package main

import (
    "context"
    "encoding/json"
    "flag"
    "fmt"
    "os"
    "time"

    "github.com/joho/godotenv"

    "pricecompare/internal/app"
    "pricecompare/internal/compare"
    "pricecompare/internal/config"
    "pricecompare/internal/logging"
)

func main() {
    curFlag := flag.String("currency", "", "display currency (default from config)")
    modeFlag := flag.String("mode", "lowest_buy", "pricing mode: lowest_buy, best_sell_net, steam-equivalent")
    ttlFlag := flag.Int("ttl", 0, "cache TTL minutes (default from config)")
    forceFlag := flag.Bool("force", false, "force refresh, ignoring cache freshness")
    noLiveFlag := flag.Bool("no-live", false, "answer from cache only")
    timeoutFlag := flag.Duration("timeout", 60*time.Second, "overall deadline")
    flag.Parse()

    if flag.NArg() == 0 {
        fmt.Fprintln(os.Stderr, "usage: compare [flags] <item key> [<item key> ...]")
        os.Exit(2)
    }

    _ = godotenv.Load()
    cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
    if err != nil {
        fmt.Fprintln(os.Stderr, "config:", err)
        os.Exit(1)
    }
    log := logging.Init(cfg.Server.LogLevel)

    engine, closeAll, err := app.Build(cfg, log)
    if err != nil {
        fmt.Fprintln(os.Stderr, "build engine:", err)
        os.Exit(1)
    }
    defer closeAll()

    items := make([]compare.Item, 0, flag.NArg())
    for _, key := range flag.Args() {
        items = append(items, compare.Item{Key: key, Quantity: 1})
    }

    cur := *curFlag
    if cur == "" {
        cur = cfg.Currency.Display
    }
    ttl := time.Duration(*ttlFlag) * time.Minute
    if *ttlFlag <= 0 {
        ttl = time.Duration(cfg.Cache.TTLMinutes) * time.Minute
    }

    ctx, cancel := context.WithTimeout(context.Background(), *timeoutFlag)
    defer cancel()

    result, err := engine.CompareItems(ctx, items, compare.Options{
        Currency:       cur,
        Mode:           compare.ParseMode(*modeFlag),
        AllowLiveFetch: !*noLiveFlag,
        ForceRefresh:   *forceFlag,
        TTL:            ttl,
    })
    if err != nil {
        fmt.Fprintln(os.Stderr, "compare:", err)
        os.Exit(1)
    }

    enc := json.NewEncoder(os.Stdout)
    enc.SetIndent("", "  ")
    enc.SetEscapeHTML(false)
    _ = enc.Encode(result)
}
