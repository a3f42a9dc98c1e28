// gymauth-sim exercises the full session lifecycle under concurrency:
// many simulated visitors sign in, hit the access gate, toggle remember-me,
// run password recoveries, and sign out, against a scripted provider and a
// Redis-backed role store (miniredis when no address is given).
//
// Configuration is read from GYMAUTH_* environment variables (a .env file in
// the working directory is honored), flags control the workload.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	gymauth "github.com/jivrajjp2751-code/gym-wala-db1963db"
	"github.com/jivrajjp2751-code/gym-wala-db1963db/flagstore"
	"github.com/jivrajjp2751-code/gym-wala-db1963db/provider/providertest"
	"github.com/jivrajjp2751-code/gym-wala-db1963db/rolestore"
)

func main() {
	var (
		members     = flag.Int("members", 1000, "number of seeded member accounts")
		admins      = flag.Int("admins", 10, "number of seeded admin accounts")
		concurrency = flag.Int("concurrency", 64, "concurrent visitor workers")
		ops         = flag.Int("ops", 20000, "total visitor cycles")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
	)
	flag.Parse()

	if *members <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "members, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	_ = godotenv.Load()

	cfg, err := gymauth.LoadConfigFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if cfg.SuperAdmin.Email == "" {
		cfg.SuperAdmin.Email = "owner@venue.example"
	}
	if cfg.Recovery.RedirectTarget == "" {
		cfg.Recovery.RedirectTarget = "https://venue.example/auth?mode=recovery"
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		client  redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		addr = mr.Addr()
		client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	roles := rolestore.NewRedisStore(client, "sim:roles")

	// ---------- seed accounts ----------
	fake := providertest.New()
	emails := make([]string, 0, *members+*admins)

	fmt.Printf("seeding %d members and %d admins...\n", *members, *admins)
	startSeed := time.Now()
	for i := 0; i < *members; i++ {
		email := fmt.Sprintf("member-%d@venue.example", i)
		fake.Seed(email, "password123")
		emails = append(emails, email)
	}
	for i := 0; i < *admins; i++ {
		email := fmt.Sprintf("admin-%d@venue.example", i)
		id := fake.Seed(email, "password123")
		if _, err := roles.Insert(ctx, id, rolestore.RoleAdmin); err != nil {
			fmt.Fprintf(os.Stderr, "seed role: %v\n", err)
			os.Exit(1)
		}
		emails = append(emails, email)
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	// ---------- engine ----------
	engine, err := gymauth.New().
		WithConfig(cfg).
		WithProvider(fake).
		WithRoleStore(roles).
		WithFlagStore(flagstore.NewRedis(client, "sim", 12*time.Hour)).
		Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "build: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	if err := engine.Initialize(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "initialize: %v\n", err)
		os.Exit(1)
	}

	// ---------- workload ----------
	var (
		signInErrs atomic.Uint64
		admits     atomic.Uint64
		denials    atomic.Uint64
		recoveries atomic.Uint64
	)

	fmt.Printf("running %d cycles over %d workers...\n", *ops, *concurrency)
	startRun := time.Now()

	work := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < *concurrency; w++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			for range work {
				email := emails[rng.Intn(len(emails))]
				remember := rng.Intn(2) == 0

				if err := engine.SignIn(ctx, email, "password123", remember); err != nil {
					signInErrs.Add(1)
					continue
				}

				switch engine.Decide() {
				case gymauth.DecisionAdmit:
					admits.Add(1)
				case gymauth.DecisionDenied:
					denials.Add(1)
				}

				// Occasionally run a recovery instead of a plain sign-out.
				if rng.Intn(50) == 0 {
					flow := engine.NewFlow(gymauth.NopHistory{})
					if err := flow.Mount(ctx, cfg.Recovery.RedirectTarget); err == nil &&
						flow.State() == gymauth.FlowResetPassword {
						recoveries.Add(1)
						_ = flow.SubmitReset(ctx, "password123", "password123")
					}
					flow.Unmount()
					continue
				}

				if remember {
					_ = engine.SignOut(ctx)
				} else {
					<-engine.HandleUnload(ctx)
				}
			}
		}(int64(w))
	}

	for i := 0; i < *ops; i++ {
		work <- i
	}
	close(work)
	wg.Wait()

	elapsed := time.Since(startRun)

	// ---------- report ----------
	fmt.Printf("\ncompleted %d cycles in %s (%.0f ops/s)\n",
		*ops, elapsed.Round(time.Millisecond), float64(*ops)/elapsed.Seconds())
	fmt.Printf("sign-in errors: %d, admits: %d, denials: %d, recoveries: %d\n",
		signInErrs.Load(), admits.Load(), denials.Load(), recoveries.Load())

	fmt.Println("\nengine counters:")
	for name, value := range engine.MetricsSnapshot() {
		fmt.Printf("  %-24s %d\n", name, value)
	}
	fmt.Printf("  %-24s %d\n", "audit_dropped", engine.AuditDropped())
	fmt.Printf("  %-24s %d\n", "tasks_dropped", engine.TasksDropped())
}
