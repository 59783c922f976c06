package web

import "html/template"

var registerTmpl = template.Must(template.New("register").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Register IP</title>
<style>
body { font-family: sans-serif; max-width: 28rem; margin: 3rem auto; padding: 0 1rem; }
button { padding: .6rem 1.2rem; font-size: 1rem; }
#status { margin-top: 1rem; }
</style>
</head>
<body>
<h2>Register your IP</h2>
<p>Your current IP: <strong id="ip">detecting...</strong></p>
<button id="submit" disabled>Register this IP</button>
<p id="status"></p>
<script>
const serviceID = {{.ServiceID}};
const telegramID = {{.TelegramID}};
const ipEl = document.getElementById("ip");
const btn = document.getElementById("submit");
const statusEl = document.getElementById("status");

fetch("/api/get_client_ip")
  .then(r => r.json())
  .then(d => { ipEl.textContent = d.ip; btn.disabled = false; })
  .catch(() => { ipEl.textContent = "unknown"; });

btn.addEventListener("click", () => {
  btn.disabled = true;
  statusEl.textContent = "Checking...";
  fetch("/api/register_ip", {
    method: "POST",
    headers: {"Content-Type": "application/json"},
    body: JSON.stringify({ip: ipEl.textContent, service_id: serviceID, telegram_id: telegramID})
  })
    .then(r => r.json())
    .then(d => { statusEl.textContent = d.message; btn.disabled = d.success; })
    .catch(() => { statusEl.textContent = "Server error! Please try again."; btn.disabled = false; });
});
</script>
</body>
</html>
`))
