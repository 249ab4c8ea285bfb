package dev

// ClientScript is injected before </body> on rendered pages whose route
// allows client scripts. It subscribes to the reload socket, reconnects
// with capped exponential backoff, and on every (re)connect compares the
// server's epoch against the last one it saw so changes missed while
// disconnected still trigger a reload.
const ClientScript = `
<script>
(function() {
    'use strict';

    var reconnectDelay = 1000;
    var maxReconnectDelay = 30000;
    var maxAttempts = 50;
    var attempts = 0;
    var lastEpoch = -1;
    var ws = null;

    function checkEpoch() {
        fetch('/__epoch').then(function(res) {
            return res.text();
        }).then(function(text) {
            var epoch = parseInt(text, 10);
            if (isNaN(epoch)) { return; }
            if (lastEpoch >= 0 && epoch > lastEpoch) {
                location.reload();
                return;
            }
            lastEpoch = epoch;
        }).catch(function() {});
    }

    function connect() {
        if (attempts >= maxAttempts) {
            console.log('[staticgo] Giving up on live reload');
            return;
        }
        attempts++;

        var protocol = location.protocol === 'https:' ? 'wss:' : 'ws:';
        ws = new WebSocket(protocol + '//' + location.host + '/__reload');

        ws.onopen = function() {
            reconnectDelay = 1000;
            attempts = 0;
            checkEpoch();
        };

        ws.onmessage = function(e) {
            var msg;
            try {
                msg = JSON.parse(e.data);
            } catch (err) {
                return;
            }

            if (msg.epoch) { lastEpoch = msg.epoch; }

            if (msg.type === 'connected') {
                console.log('[staticgo] Live reload connected');
                return;
            }
            if (msg.type !== 'reload') { return; }

            if (msg.reloadType === 'style') {
                reloadStyles();
            } else {
                location.reload();
            }
        };

        ws.onclose = function() {
            setTimeout(function() {
                reconnectDelay = Math.min(reconnectDelay * 2, maxReconnectDelay);
                connect();
            }, reconnectDelay);
        };

        ws.onerror = function() {
            ws.close();
        };
    }

    function reloadStyles() {
        var links = document.querySelectorAll('link[rel="stylesheet"]');
        links.forEach(function(link) {
            var url = new URL(link.href);
            url.searchParams.set('_reload', Date.now());
            link.href = url.toString();
        });
        // Inline style blocks need a full render to pick up changes.
        if (links.length === 0) {
            location.reload();
        }
    }

    if (document.readyState === 'loading') {
        document.addEventListener('DOMContentLoaded', connect);
    } else {
        connect();
    }
})();
</script>
`
