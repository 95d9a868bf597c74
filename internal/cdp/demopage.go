package cdp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

// DemoPageHTML keeps mutating its own DOM so every kind of mirror event
// shows up in the logs: insertions, removals, attribute and text edits,
// shadow roots, pseudo elements, a template and a password field.
const DemoPageHTML = `<!DOCTYPE html>
<html>
<head>
    <title>DOM Mirror Demo</title>
    <style>
        body {
            font-family: system-ui, -apple-system, sans-serif;
            padding: 40px;
            background: #1a1a2e;
            color: #eee;
            margin: 0;
        }
        .container { max-width: 800px; margin: 0 auto; }
        h1 { color: #4ecca3; }
        .card {
            background: rgba(255,255,255,0.05);
            border-radius: 8px;
            padding: 20px;
            margin-bottom: 20px;
        }
        .card h2 { color: #4ecca3; margin-top: 0; font-size: 18px; }
        #items li { font-family: monospace; }
        .flag::before { content: "[on] "; color: #4ecca3; }
        .flag.done::after { content: " (done)"; color: #888; }
        .instructions code {
            background: rgba(0,0,0,0.3);
            padding: 2px 6px;
            border-radius: 4px;
        }
    </style>
</head>
<body>
    <div class="container">
        <h1>DOM Mirror Demo</h1>

        <div class="card">
            <h2>Counter</h2>
            <div id="counter" data-count="0">0</div>
        </div>

        <div class="card">
            <h2>Items</h2>
            <ul id="items"></ul>
        </div>

        <div class="card">
            <h2>Pseudo elements</h2>
            <p id="flag" class="flag">toggled every few seconds</p>
        </div>

        <div class="card">
            <h2>Shadow DOM</h2>
            <div id="host"></div>
        </div>

        <div class="card">
            <h2>Form</h2>
            <input id="secret" type="password" value="hunter2">
            <template id="row"><li class="templated">from template</li></template>
        </div>

        <div class="instructions">
            <p>Follow the mirror log:</p>
            <p><code>tail -f logs/*/*/dom.jsonl</code></p>
        </div>
    </div>

    <script>
        const counter = document.getElementById('counter');
        const items = document.getElementById('items');
        const flag = document.getElementById('flag');
        const secret = document.getElementById('secret');
        const row = document.getElementById('row');

        const root = document.getElementById('host').attachShadow({mode: 'open'});
        root.innerHTML = '<style>span { color: #f9ca24; }</style><span id="shadow-text">shadow 0</span>';
        const shadowText = root.getElementById('shadow-text');

        let tick = 0;
        setInterval(() => {
            tick++;

            counter.textContent = String(tick);
            counter.setAttribute('data-count', String(tick));

            const li = document.createElement('li');
            li.textContent = 'item #' + tick;
            items.insertBefore(li, items.firstChild);
            while (items.children.length > 5) {
                items.removeChild(items.lastChild);
            }

            if (tick % 3 === 0) {
                flag.classList.toggle('done');
                items.appendChild(row.content.cloneNode(true));
            }
            if (tick % 4 === 0) {
                flag.classList.toggle('flag');
                secret.value = 'rotated-' + tick;
                secret.setAttribute('value', secret.value);
            }

            shadowText.firstChild.data = 'shadow ' + tick;
            counter.style.opacity = String(0.5 + (tick % 5) / 10);
        }, 2000);
    </script>
</body>
</html>`

// DemoServer serves DemoPageHTML over loopback HTTP so the demo tab is
// mirrored like any other site.
type DemoServer struct {
	server   *http.Server
	listener net.Listener
}

// StartDemoServer listens on an ephemeral loopback port.
func StartDemoServer() (*DemoServer, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("listen for demo page: %w", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/demo", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(DemoPageHTML))
	})

	ds := &DemoServer{
		server:   &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second},
		listener: ln,
	}
	go func() {
		_ = ds.server.Serve(ln)
	}()
	return ds, nil
}

// URL returns the address of the demo page.
func (ds *DemoServer) URL() string {
	return "http://" + ds.listener.Addr().String() + "/demo"
}

// Close shuts the server down.
func (ds *DemoServer) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := ds.server.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
