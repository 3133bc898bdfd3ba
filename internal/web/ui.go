package web

import "net/http"

func registerUI(mux *http.ServeMux) {
	if mux == nil {
		return
	}

	serve := func(contentType, body string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", contentType)
			w.Header().Set("Cache-Control", "no-store")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(body))
		}
	}

	mux.HandleFunc("GET /{$}", serve("text/html; charset=utf-8", uiIndexHTML))
	mux.HandleFunc("GET /ui/styles.css", serve("text/css; charset=utf-8", uiStylesCSS))
	mux.HandleFunc("GET /ui/app.js", serve("text/javascript; charset=utf-8", uiAppJS))
}

const uiIndexHTML = `<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>Chatbot with Memory</title>
  <link rel="stylesheet" href="/ui/styles.css">
</head>
<body>
  <main class="page">
    <h1>Chatbot with Memory</h1>

    <section class="key">
      <label for="api-key">API Key</label>
      <input id="api-key" type="password" autocomplete="off" placeholder="sk-...">
      <p id="key-notice" class="notice" hidden>Please enter your API key to continue.</p>
    </section>

    <section id="messages" class="messages" aria-live="polite"></section>

    <form id="chat-form" class="chat-form">
      <input id="chat-input" type="text" autocomplete="off" placeholder="What is up?" disabled>
      <button type="submit" id="send" disabled>Send</button>
    </form>
    <p id="error" class="error" hidden></p>

    <aside class="sidebar">
      <h2>Stored Context</h2>
      <pre id="context" class="context"></pre>
      <div class="buttons">
        <button type="button" id="load-history">Load Previous Chats</button>
        <button type="button" id="reset">Reset Chat</button>
      </div>
    </aside>
  </main>
  <script src="/ui/app.js"></script>
</body>
</html>
`

const uiStylesCSS = `* { box-sizing: border-box; }
body {
  margin: 0;
  font-family: system-ui, -apple-system, "Segoe UI", sans-serif;
  background: #fafafa;
  color: #222;
}
.page {
  max-width: 760px;
  margin: 0 auto;
  padding: 24px 16px 64px;
}
h1 { font-size: 1.8rem; margin: 0 0 16px; }
h2 { font-size: 1.1rem; margin: 0 0 8px; }
.key { margin-bottom: 16px; }
.key label { display: block; font-weight: 600; margin-bottom: 4px; }
.key input, .chat-form input {
  width: 100%;
  padding: 8px 10px;
  border: 1px solid #ccc;
  border-radius: 6px;
  font-size: 1rem;
}
.notice {
  background: #fff4e5;
  border: 1px solid #f0c36d;
  border-radius: 6px;
  padding: 8px 10px;
}
.messages { display: flex; flex-direction: column; gap: 10px; margin-bottom: 16px; }
.msg { padding: 10px 12px; border-radius: 8px; background: #fff; border: 1px solid #e5e5e5; }
.msg .role { font-size: 0.75rem; text-transform: uppercase; color: #888; margin-bottom: 4px; }
.msg.user { background: #eef5ff; border-color: #cfe0ff; }
.msg .body p:first-child { margin-top: 0; }
.msg .body p:last-child { margin-bottom: 0; }
.msg .body pre { overflow-x: auto; background: #f3f3f3; padding: 8px; border-radius: 4px; }
.chat-form { display: flex; gap: 8px; }
.chat-form button, .buttons button {
  padding: 8px 14px;
  border: 1px solid #bbb;
  border-radius: 6px;
  background: #fff;
  cursor: pointer;
}
button:disabled { opacity: 0.5; cursor: default; }
.error { color: #b00020; }
.sidebar { margin-top: 32px; border-top: 1px solid #ddd; padding-top: 16px; }
.context {
  white-space: pre-wrap;
  background: #fff;
  border: 1px solid #e5e5e5;
  border-radius: 6px;
  padding: 10px;
  min-height: 3em;
}
.buttons { display: flex; gap: 8px; margin-top: 12px; }
`

const uiAppJS = `(function () {
  "use strict";

  var el = {
    key: document.getElementById("api-key"),
    notice: document.getElementById("key-notice"),
    messages: document.getElementById("messages"),
    form: document.getElementById("chat-form"),
    input: document.getElementById("chat-input"),
    send: document.getElementById("send"),
    error: document.getElementById("error"),
    context: document.getElementById("context"),
    loadHistory: document.getElementById("load-history"),
    reset: document.getElementById("reset")
  };

  var busy = false;
  var hasKey = false;

  function showError(msg) {
    el.error.textContent = msg || "";
    el.error.hidden = !msg;
  }

  function setBusy(b) {
    busy = b;
    var enabled = hasKey && !busy;
    el.input.disabled = !enabled;
    el.send.disabled = !enabled;
    el.loadHistory.disabled = busy;
    el.reset.disabled = busy;
  }

  function addMessage(role, html, text) {
    var div = document.createElement("div");
    div.className = "msg " + role;
    var r = document.createElement("div");
    r.className = "role";
    r.textContent = role;
    var body = document.createElement("div");
    body.className = "body";
    if (html) {
      body.innerHTML = html;
    } else {
      body.textContent = text || "";
    }
    div.appendChild(r);
    div.appendChild(body);
    el.messages.appendChild(div);
    div.scrollIntoView({ block: "end" });
    return body;
  }

  function render(state) {
    hasKey = !!state.has_key;
    el.notice.hidden = hasKey;
    el.context.textContent = state.context || "";
    el.messages.innerHTML = "";
    (state.messages || []).forEach(function (m) {
      addMessage(m.role, m.html, m.content);
    });
    setBusy(state.state === "awaiting-response");
  }

  async function call(method, path, body) {
    var opts = { method: method, headers: {}, credentials: "same-origin" };
    if (body !== undefined) {
      opts.headers["Content-Type"] = "application/json";
      opts.body = JSON.stringify(body);
    }
    var res = await fetch(path, opts);
    var data = await res.json();
    if (!res.ok || !data.ok) {
      throw new Error(data.error || ("HTTP " + res.status));
    }
    return data;
  }

  async function refresh() {
    try {
      render(await call("GET", "/api/state"));
      showError("");
    } catch (e) {
      showError(e.message);
    }
  }

  function parseEvent(block) {
    var ev = { event: "message", data: "" };
    block.split("\n").forEach(function (line) {
      if (line.indexOf("event:") === 0) {
        ev.event = line.slice(6).trim();
      } else if (line.indexOf("data:") === 0) {
        ev.data += line.slice(5).trim();
      }
    });
    return ev;
  }

  async function chat(text) {
    showError("");
    addMessage("user", null, text);
    var body = addMessage("assistant", null, "");
    var streamed = "";
    setBusy(true);

    try {
      var res = await fetch("/api/chat", {
        method: "POST",
        headers: { "Content-Type": "application/json" },
        credentials: "same-origin",
        body: JSON.stringify({ message: text })
      });

      var ct = res.headers.get("Content-Type") || "";
      if (ct.indexOf("text/event-stream") !== 0) {
        var data = await res.json();
        throw new Error(data.error || ("HTTP " + res.status));
      }

      var reader = res.body.getReader();
      var decoder = new TextDecoder();
      var buf = "";
      for (;;) {
        var chunk = await reader.read();
        if (chunk.done) break;
        buf += decoder.decode(chunk.value, { stream: true });

        var idx;
        while ((idx = buf.indexOf("\n\n")) >= 0) {
          var ev = parseEvent(buf.slice(0, idx));
          buf = buf.slice(idx + 2);
          if (!ev.data) continue;
          var payload = JSON.parse(ev.data);

          if (ev.event === "delta") {
            streamed += payload.text;
            body.textContent = streamed + "▌";
          } else if (ev.event === "done") {
            body.innerHTML = payload.html || "";
            if (!payload.html) body.textContent = payload.content;
            el.context.textContent = payload.context || "";
          } else if (ev.event === "error") {
            throw new Error(payload.error);
          }
        }
      }
    } catch (e) {
      body.textContent = streamed;
      showError(e.message);
    } finally {
      setBusy(false);
      el.input.focus();
    }
  }

  el.key.addEventListener("change", async function () {
    try {
      render(await call("POST", "/api/key", { api_key: el.key.value }));
    } catch (e) {
      showError(e.message);
    }
  });

  el.form.addEventListener("submit", function (e) {
    e.preventDefault();
    var text = el.input.value;
    if (busy || !text.trim()) return;
    el.input.value = "";
    chat(text);
  });

  el.loadHistory.addEventListener("click", async function () {
    try {
      render(await call("POST", "/api/history/load"));
    } catch (e) {
      showError(e.message);
    }
  });

  el.reset.addEventListener("click", async function () {
    try {
      render(await call("POST", "/api/reset"));
    } catch (e) {
      showError(e.message);
    }
  });

  refresh();
})();
`
