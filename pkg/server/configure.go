/*
 * stalker-addon exposes a Stalker/MAG IPTV portal as a Stremio TV catalog.
 * Copyright (C) 2025  Lucas Duport
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with this program.  If not, see <https://www.gnu.org/licenses/>.
 */

package server

const configurePage = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>Stalker IPTV - Configure</title>
  <style>
    body { font-family: -apple-system, BlinkMacSystemFont, sans-serif; max-width: 480px; margin: 2rem auto; padding: 1rem; background: #f9f9f9; }
    label { display: block; margin-top: 1rem; font-weight: 600; }
    input { width: 100%; padding: .6rem; margin-top: .3rem; box-sizing: border-box; }
    button { margin-top: 1.5rem; width: 100%; padding: .8rem; border: 0; border-radius: 4px; background: #0066cc; color: #fff; font-size: 1rem; cursor: pointer; }
    button:hover { background: #0055aa; }
    #error { color: #c00; margin-top: 1rem; }
  </style>
</head>
<body>
  <h1>Stalker IPTV (MAC)</h1>
  <form id="form">
    <label for="portal">Portal URL</label>
    <input id="portal" name="stalker_portal" placeholder="http://your-portal.com:8080/c/" required>
    <label for="mac">MAC address</label>
    <input id="mac" name="stalker_mac" placeholder="00:1A:79:XX:XX:XX" required>
    <label for="timezone">Timezone</label>
    <input id="timezone" name="stalker_timezone" placeholder="Europe/Lisbon">
    <label for="list_name">List name (optional)</label>
    <input id="list_name" name="list_name">
    <button type="submit">Install</button>
  </form>
  <div id="error"></div>
  <div id="status"></div>
  <script>
    document.getElementById('form').addEventListener('submit', async function (e) {
      e.preventDefault();
      document.getElementById('error').textContent = '';
      const body = {
        stalker_portal: document.getElementById('portal').value.trim(),
        stalker_mac: document.getElementById('mac').value.trim().toUpperCase(),
        stalker_timezone: document.getElementById('timezone').value.trim(),
        list_name: document.getElementById('list_name').value.trim()
      };
      if (!body.stalker_portal || !body.stalker_mac) {
        document.getElementById('error').textContent = 'Portal URL and MAC address are required.';
        return;
      }
      const res = await fetch('/save-config', {
        method: 'POST',
        headers: { 'Content-Type': 'application/json' },
        body: JSON.stringify(body)
      });
      const j = await res.json();
      if (!res.ok || !j.token) {
        document.getElementById('error').textContent = j.error || 'Could not save configuration.';
        return;
      }
      const manifestUrl = window.location.origin + '/manifest.json?token=' + j.token;
      window.location.href = 'stremio://' + manifestUrl.replace(/^https?:\/\//, '');
      setTimeout(function () {
        document.getElementById('status').innerHTML =
          'Stremio did not open? <a target="_blank" href="https://web.stremio.com/#/addons?addon=' +
          encodeURIComponent(manifestUrl) + '">Install in the browser</a>';
      }, 1800);
    });
  </script>
</body>
</html>
`
